package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackRequest(t *testing.T, h *Handler, body CallbackRequest) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Callback(c)
	return rec
}

func TestCallbackOK(t *testing.T) {
	svc, _, _, reg := newCallbackFixture()
	h := NewHandler(svc)

	rec := callbackRequest(t, h, CallbackRequest{
		OrderID:   "order_42",
		PaymentID: "pay_7",
		Signature: Signature("order_42", "pay_7", testSecret),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), reg.ID.String())
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)
}

func TestCallbackInvalidSignature(t *testing.T) {
	svc, _, _, _ := newCallbackFixture()
	h := NewHandler(svc)

	rec := callbackRequest(t, h, CallbackRequest{
		OrderID:   "order_42",
		PaymentID: "pay_7",
		Signature: "forged",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid signature")
}

func TestCallbackUnknownOrder(t *testing.T) {
	svc, _, _, _ := newCallbackFixture()
	h := NewHandler(svc)

	rec := callbackRequest(t, h, CallbackRequest{
		OrderID:   "order_missing",
		PaymentID: "pay_7",
		Signature: Signature("order_missing", "pay_7", testSecret),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackStoreFailureIs500(t *testing.T) {
	svc, store, _, _ := newCallbackFixture()
	store.getErr = errors.New("connection refused")
	h := NewHandler(svc)

	rec := callbackRequest(t, h, CallbackRequest{
		OrderID:   "order_42",
		PaymentID: "pay_7",
		Signature: Signature("order_42", "pay_7", testSecret),
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCallbackMissingFields(t *testing.T) {
	svc, _, _, _ := newCallbackFixture()
	h := NewHandler(svc)

	rec := callbackRequest(t, h, CallbackRequest{OrderID: "order_42"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
