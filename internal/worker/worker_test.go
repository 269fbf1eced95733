package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/internal/notifications"
	"github.com/aspire-webinars/backend/internal/registrations"
	"github.com/aspire-webinars/backend/pkg/queue"
)

type fakeRegStore struct {
	regs       map[uuid.UUID]*models.Registration
	listFilter *registrations.Filter
	listResult []models.Registration
	pending    []models.Registration
	notified   []string // "<id>:<type>"
}

func (f *fakeRegStore) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, ok := f.regs[id]
	if !ok {
		return nil, registrations.ErrNotFound
	}
	return reg, nil
}

func (f *fakeRegStore) List(_ context.Context, filter registrations.Filter) ([]models.Registration, error) {
	f.listFilter = &filter
	return f.listResult, nil
}

func (f *fakeRegStore) ListPendingWithoutReminder(_ context.Context) ([]models.Registration, error) {
	return f.pending, nil
}

func (f *fakeRegStore) MarkNotified(_ context.Context, id uuid.UUID, emailType string) error {
	f.notified = append(f.notified, id.String()+":"+emailType)
	return nil
}

type fakeWebinarStore struct {
	webinar *models.Webinar
}

func (f *fakeWebinarStore) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	return f.webinar, nil
}

type fakeLogStore struct {
	logs []models.EmailLog
}

func (f *fakeLogStore) Record(_ context.Context, log *models.EmailLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

type fakeJobQueue struct {
	enqueued []queue.TransactionalEmailPayload
	retried  []*queue.Job
}

func (f *fakeJobQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeJobQueue) Retry(_ context.Context, job *queue.Job) error {
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeJobQueue) EnqueueTransactionalEmail(_ context.Context, p queue.TransactionalEmailPayload) error {
	f.enqueued = append(f.enqueued, p)
	return nil
}

type fakeSender struct {
	sent   []string // recipient addresses
	failTo map[string]error
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if err := f.failTo[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, to)
	return nil
}

type workerFixture struct {
	processor *EmailProcessor
	regs      *fakeRegStore
	logs      *fakeLogStore
	queue     *fakeJobQueue
	sender    *fakeSender
	reg       *models.Registration
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	w := &models.Webinar{
		ID:              uuid.New(),
		Title:           "Go in Production",
		StartsAt:        time.Now().Add(48 * time.Hour),
		DurationMinutes: 60,
		Speaker:         "R. Pike",
		IsActive:        true,
	}
	reg := &models.Registration{
		ID:        uuid.New(),
		WebinarID: w.ID,
		FullName:  "Asha Rao",
		Email:     "asha@example.com",
		Status:    models.PaymentStatusPending,
	}
	f := &workerFixture{
		regs:   &fakeRegStore{regs: map[uuid.UUID]*models.Registration{reg.ID: reg}},
		logs:   &fakeLogStore{},
		queue:  &fakeJobQueue{},
		sender: &fakeSender{},
		reg:    reg,
	}
	dispatcher := notifications.NewDispatcher(f.sender, 0, nil)
	f.processor = NewEmailProcessor(f.regs, &fakeWebinarStore{webinar: w}, f.logs, dispatcher, f.queue, nil)
	return f
}

func transactionalJob(t *testing.T, p queue.TransactionalEmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeTransactionalEmail, Payload: raw}
}

func bulkJob(t *testing.T, p queue.BulkEmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeBulkEmail, Payload: raw}
}

func TestProcessTransactionalSendsAndFlags(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.processor.Process(context.Background(), transactionalJob(t, queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: f.reg.ID,
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"asha@example.com"}, f.sender.sent)
	assert.Equal(t, []string{f.reg.ID.String() + ":" + models.EmailTypeWelcome}, f.regs.notified)

	require.Len(t, f.logs.logs, 1)
	assert.Equal(t, models.EmailTypeWelcome, f.logs.logs[0].EmailType)
	assert.Equal(t, models.EmailLogStatusSent, f.logs.logs[0].Status)
}

func TestProcessTransactionalAlreadySentSkips(t *testing.T) {
	f := newWorkerFixture(t)
	f.reg.WelcomeSent = true

	err := f.processor.Process(context.Background(), transactionalJob(t, queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: f.reg.ID,
	}))
	require.NoError(t, err)

	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.regs.notified)
	assert.Empty(t, f.logs.logs)
}

func TestProcessTransactionalForceResends(t *testing.T) {
	f := newWorkerFixture(t)
	f.reg.WelcomeSent = true

	err := f.processor.Process(context.Background(), transactionalJob(t, queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: f.reg.ID,
		Force:          true,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"asha@example.com"}, f.sender.sent)
}

func TestProcessTransactionalSendFailure(t *testing.T) {
	f := newWorkerFixture(t)
	f.sender.failTo = map[string]error{"asha@example.com": errors.New("connection reset")}

	err := f.processor.Process(context.Background(), transactionalJob(t, queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: f.reg.ID,
	}))
	assert.Error(t, err)

	// the failed attempt is still logged; the flag stays clear
	require.Len(t, f.logs.logs, 1)
	assert.Equal(t, models.EmailLogStatusFailed, f.logs.logs[0].Status)
	assert.Equal(t, "connection reset", f.logs.logs[0].ErrorMessage)
	assert.Empty(t, f.regs.notified)
}

func TestProcessBulkFilterMapping(t *testing.T) {
	for filter, want := range map[string]string{
		"paid":    models.PaymentStatusPaid,
		"pending": models.PaymentStatusPending,
		"all":     "",
	} {
		f := newWorkerFixture(t)
		err := f.processor.Process(context.Background(), bulkJob(t, queue.BulkEmailPayload{
			Filter:  filter,
			Subject: "Hello",
			Message: "<p>Hi {{name}}</p>",
		}))
		require.NoError(t, err)
		require.NotNil(t, f.regs.listFilter, "filter %q", filter)
		assert.Equal(t, want, f.regs.listFilter.Status, "filter %q", filter)
	}
}

func TestProcessBulkRecordsPerRecipient(t *testing.T) {
	f := newWorkerFixture(t)
	f.regs.listResult = []models.Registration{
		{ID: uuid.New(), WebinarID: f.reg.WebinarID, FullName: "A", Email: "a@example.com"},
		{ID: uuid.New(), WebinarID: f.reg.WebinarID, FullName: "B", Email: "b@example.com"},
	}
	f.sender.failTo = map[string]error{"b@example.com": errors.New("mailbox unavailable")}

	err := f.processor.Process(context.Background(), bulkJob(t, queue.BulkEmailPayload{
		Filter:  "all",
		Subject: "Hello",
		Message: "<p>Hi {{name}}</p>",
	}))
	require.NoError(t, err)

	require.Len(t, f.logs.logs, 2)
	assert.Equal(t, models.EmailLogStatusSent, f.logs.logs[0].Status)
	assert.Equal(t, models.EmailLogStatusFailed, f.logs.logs[1].Status)
	assert.Equal(t, models.EmailTypeBulk, f.logs.logs[0].EmailType)
}

func TestProcessReminderSweepFansOut(t *testing.T) {
	f := newWorkerFixture(t)
	f.regs.pending = []models.Registration{
		{ID: uuid.New()},
		{ID: uuid.New()},
	}

	job := &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeReminderSweep, Payload: []byte(`{}`)}
	require.NoError(t, f.processor.Process(context.Background(), job))

	require.Len(t, f.queue.enqueued, 2)
	for i, p := range f.queue.enqueued {
		assert.Equal(t, models.EmailTypeReminder, p.EmailType)
		assert.Equal(t, f.regs.pending[i].ID, p.RegistrationID)
		assert.False(t, p.Force)
	}
}

func TestProcessUnknownJobType(t *testing.T) {
	f := newWorkerFixture(t)
	err := f.processor.Process(context.Background(), &queue.Job{ID: "x", Type: "publish_podcast"})
	assert.Error(t, err)
}
