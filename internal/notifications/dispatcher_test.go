package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent      []sentMail
	failTo    map[string]error
	afterSend func()
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if err := f.failTo[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	if f.afterSend != nil {
		f.afterSend()
	}
	return nil
}

func recipients(n int) []BulkRecipient {
	out := make([]BulkRecipient, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, BulkRecipient{
			Name:  fmt.Sprintf("User %d", i+1),
			Email: fmt.Sprintf("user%d@example.com", i+1),
		})
	}
	return out
}

func TestSendBulkContinuesPastFailures(t *testing.T) {
	sender := &fakeSender{failTo: map[string]error{
		"user3@example.com": errors.New("mailbox unavailable"),
	}}
	d := NewDispatcher(sender, 0, nil)

	result := d.SendBulk(context.Background(), recipients(5), "Hello", "<p>Hi {{name}}</p>")

	assert.Equal(t, 4, result.Sent)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "user3@example.com", result.Failures[0].Email)
	assert.Len(t, sender.sent, 4)
}

func TestSendBulkPersonalizes(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, 0, nil)

	d.SendBulk(context.Background(), recipients(2), "Seats filling up", "<p>Hi {{name}}, seats for {{name}} are limited.</p>")

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].body, "Hi User 1, seats for User 1 are limited.")
	assert.Contains(t, sender.sent[1].body, "Hi User 2, seats for User 2 are limited.")
	assert.NotContains(t, sender.sent[0].body, "{{name}}")
	assert.Equal(t, "Seats filling up", sender.sent[0].subject)
}

func TestSendBulkCanceledBeforeStart(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := d.SendBulk(ctx, recipients(3), "Hello", "<p>Hi</p>")
	assert.Zero(t, result.Sent)
	assert.Empty(t, sender.sent)
}

func TestSendBulkCancelStopsMidBatch(t *testing.T) {
	// no delay configured; cancellation must still be observed
	sender := &fakeSender{}
	d := NewDispatcher(sender, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sender.afterSend = func() {
		if len(sender.sent) == 2 {
			cancel()
		}
	}

	result := d.SendBulk(ctx, recipients(5), "Hello", "<p>Hi</p>")
	assert.Equal(t, 2, result.Sent)
	assert.Len(t, sender.sent, 2)
}

func TestRenderTransactionalUnknownType(t *testing.T) {
	_, err := RenderTransactional("postcard", nil, nil)
	assert.Error(t, err)
}

func TestRenderBulkEscapesNothing(t *testing.T) {
	email := RenderBulk("Subject", "<p>{{name}} & co</p>", `O'Brien`)
	assert.True(t, strings.Contains(email.HTML, "O'Brien & co"))
}
