package webinars

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/aspire-webinars/backend/internal/models"
)

type fakeStore struct {
	webinars map[uuid.UUID]*models.Webinar
}

func newFakeStore(ws ...*models.Webinar) *fakeStore {
	f := &fakeStore{webinars: map[uuid.UUID]*models.Webinar{}}
	for _, w := range ws {
		f.webinars[w.ID] = w
	}
	return f
}

func (f *fakeStore) Create(_ context.Context, w *models.Webinar) error {
	w.ID = uuid.New()
	f.webinars[w.ID] = w
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	w, ok := f.webinars[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) GetOpen(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	w, ok := f.webinars[id]
	if !ok || !w.Open() {
		return nil, ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) List(_ context.Context, openOnly bool) ([]models.Webinar, error) {
	var list []models.Webinar
	for _, w := range f.webinars {
		if w.IsDeleted || (openOnly && !w.IsActive) {
			continue
		}
		list = append(list, *w)
	}
	return list, nil
}

func (f *fakeStore) ListDeleted(_ context.Context) ([]models.Webinar, error) {
	var list []models.Webinar
	for _, w := range f.webinars {
		if w.IsDeleted {
			list = append(list, *w)
		}
	}
	return list, nil
}

func (f *fakeStore) Update(_ context.Context, w *models.Webinar) error {
	if _, ok := f.webinars[w.ID]; !ok {
		return ErrNotFound
	}
	f.webinars[w.ID] = w
	return nil
}

func (f *fakeStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	w, ok := f.webinars[id]
	if !ok || w.IsDeleted {
		return ErrNotFound
	}
	now := time.Now()
	w.IsDeleted = true
	w.IsActive = false
	w.DeletedAt = &now
	return nil
}

func (f *fakeStore) Restore(_ context.Context, id uuid.UUID) error {
	w, ok := f.webinars[id]
	if !ok || !w.IsDeleted {
		return ErrNotFound
	}
	w.IsDeleted = false
	w.IsActive = true
	w.DeletedAt = nil
	return nil
}

func doRequest(t *testing.T, handle gin.HandlerFunc, method, path, id string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, nil)
	if id != "" {
		c.Params = gin.Params{{Key: "id", Value: id}}
	}
	handle(c)
	c.Writer.WriteHeaderNow()
	return rec
}

func TestDeleteThenRestore(t *testing.T) {
	w := &models.Webinar{ID: uuid.New(), Title: "Go in Production", IsActive: true}
	store := newFakeStore(w)
	h := NewHandler(store)

	rec := doRequest(t, h.Delete, http.MethodDelete, "/admin/webinars/"+w.ID.String(), w.ID.String())
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, w.IsDeleted)
	assert.False(t, w.IsActive)

	rec = doRequest(t, h.ListDeleted, http.MethodGet, "/admin/webinars/deleted", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), w.ID.String())

	rec = doRequest(t, h.Restore, http.MethodPost, "/admin/webinars/"+w.ID.String()+"/restore", w.ID.String())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, w.IsDeleted)
	assert.True(t, w.IsActive)
	assert.Nil(t, w.DeletedAt)
}

func TestRestoreNotDeleted(t *testing.T) {
	w := &models.Webinar{ID: uuid.New(), Title: "Go in Production", IsActive: true}
	h := NewHandler(newFakeStore(w))

	rec := doRequest(t, h.Restore, http.MethodPost, "/admin/webinars/"+w.ID.String()+"/restore", w.ID.String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletedWebinarHiddenFromPublic(t *testing.T) {
	w := &models.Webinar{ID: uuid.New(), Title: "Go in Production", IsActive: true, IsDeleted: true}
	h := NewHandler(newFakeStore(w))

	rec := doRequest(t, h.GetOpen, http.MethodGet, "/webinars/"+w.ID.String(), w.ID.String())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h.ListOpen, http.MethodGet, "/webinars", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), w.ID.String())
}
