package registrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-webinars/backend/internal/middleware"
	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/pkg/queue"
)

type fakeRepo struct {
	regs   map[uuid.UUID]*models.Registration
	getErr error
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	reg, ok := f.regs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return reg, nil
}

func (f *fakeRepo) List(_ context.Context, _ Filter) ([]models.Registration, error) {
	return nil, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.regs[id]; !ok {
		return ErrNotFound
	}
	delete(f.regs, id)
	return nil
}

func (f *fakeRepo) Recent(_ context.Context, _ int) ([]models.Registration, error) {
	return nil, nil
}

func (f *fakeRepo) GetStats(_ context.Context, _ int) (*Stats, error) {
	return &Stats{}, nil
}

func newHandlerFixture(reg *models.Registration) (*Handler, *fakeRepo, *memNotifier) {
	repo := &fakeRepo{regs: map[uuid.UUID]*models.Registration{}}
	if reg != nil {
		repo.regs[reg.ID] = reg
	}
	notifier := &memNotifier{}
	return NewHandler(nil, repo, notifier, nil, "", 49, nil), repo, notifier
}

func meRequest(t *testing.T, h *Handler, subject string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/registrations/me", nil)
	c.Set(middleware.ContextSubject, subject)
	h.Me(c)
	return rec
}

func resendRequest(t *testing.T, h *Handler, id string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/registrations/"+id+"/resend", nil)
	c.Params = gin.Params{{Key: "id", Value: id}}
	h.Resend(c)
	return rec
}

func TestMePaidHasAccess(t *testing.T) {
	reg := &models.Registration{ID: uuid.New(), Status: models.PaymentStatusPaid}
	h, _, _ := newHandlerFixture(reg)

	rec := meRequest(t, h, reg.ID.String())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_access":true`)
}

func TestMeUnknownRegistrationIs404(t *testing.T) {
	h, _, _ := newHandlerFixture(nil)
	rec := meRequest(t, h, uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMeStoreFailureIs500(t *testing.T) {
	h, repo, _ := newHandlerFixture(nil)
	repo.getErr = errors.New("connection refused")

	rec := meRequest(t, h, uuid.New().String())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResendPaidQueuesWelcome(t *testing.T) {
	reg := &models.Registration{ID: uuid.New(), Status: models.PaymentStatusPaid, WelcomeSent: true}
	h, _, notifier := newHandlerFixture(reg)

	rec := resendRequest(t, h, reg.ID.String())
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: reg.ID,
		Force:          true,
	}, notifier.payloads[0])
}

func TestResendUnpaidRejected(t *testing.T) {
	reg := &models.Registration{ID: uuid.New(), Status: models.PaymentStatusPending}
	h, _, notifier := newHandlerFixture(reg)

	rec := resendRequest(t, h, reg.ID.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, notifier.payloads)
}

func TestResendUnknownRegistration(t *testing.T) {
	h, _, notifier := newHandlerFixture(nil)
	rec := resendRequest(t, h, uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, notifier.payloads)
}
