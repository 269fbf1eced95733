package registrations

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-webinars/backend/internal/models"
)

func TestWriteCSV(t *testing.T) {
	paidAt := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	regs := []models.Registration{
		{
			ID:        uuid.New(),
			FullName:  "Asha Rao",
			Email:     "asha@example.com",
			Phone:     "9876543210",
			Status:    models.PaymentStatusPaid,
			Amount:    99,
			CreatedAt: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
			PaidAt:    &paidAt,
		},
		{
			ID:        uuid.New(),
			FullName:  `Ravi "RK" Kumar`,
			Email:     "ravi@example.com",
			Phone:     "1234567890",
			Status:    models.PaymentStatusPending,
			Amount:    0, // falls back to the default fee
			CreatedAt: time.Date(2026, 3, 9, 11, 15, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, regs, 49))

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 3)

	assert.Equal(t, `"Name","Email","Phone","Payment Status","Amount","Registered At","Paid At"`, lines[0])
	assert.Equal(t, `"Asha Rao","asha@example.com","9876543210","paid","99","2026-03-09 10:00:00","2026-03-10 14:30:00"`, lines[1])
	assert.Equal(t, `"Ravi ""RK"" Kumar","ravi@example.com","1234567890","pending","49","2026-03-09 11:15:00",""`, lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, 49))
	assert.Equal(t, `"Name","Email","Phone","Payment Status","Amount","Registered At","Paid At"`+"\r\n", buf.String())
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "registrations_2026-03-10.csv", exportFilename(now))
}
