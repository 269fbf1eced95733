package registrations

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aspire-webinars/backend/internal/models"
)

// csvHeader is the fixed export projection.
var csvHeader = []string{"Name", "Email", "Phone", "Payment Status", "Amount", "Registered At", "Paid At"}

const csvTimeLayout = "2006-01-02 15:04:05"

// WriteCSV streams the registrations as CSV. Every field is
// double-quoted; zero amounts fall back to defaultFee.
func WriteCSV(w io.Writer, regs []models.Registration, defaultFee int) error {
	if err := writeCSVRow(w, csvHeader); err != nil {
		return err
	}
	for i := range regs {
		reg := &regs[i]
		amount := reg.Amount
		if amount <= 0 {
			amount = defaultFee
		}
		paidAt := ""
		if reg.PaidAt != nil {
			paidAt = reg.PaidAt.UTC().Format(csvTimeLayout)
		}
		row := []string{
			reg.FullName,
			reg.Email,
			reg.Phone,
			reg.Status,
			fmt.Sprintf("%d", amount),
			reg.CreatedAt.UTC().Format(csvTimeLayout),
			paidAt,
		}
		if err := writeCSVRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVRow quotes every field unconditionally, which encoding/csv
// cannot be told to do.
func writeCSVRow(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// exportFilename names the download with the current date.
func exportFilename(now time.Time) string {
	return fmt.Sprintf("registrations_%s.csv", now.Format("2006-01-02"))
}
