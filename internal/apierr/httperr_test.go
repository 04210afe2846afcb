package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestUnauthorizedDefaultsMessage(t *testing.T) {
	c, w := newTestContext()
	Unauthorized(c, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "unauthorized", resp.Error)
	assert.Equal(t, "authentication required", resp.Message)
}

func TestBadRequestUsesGivenMessage(t *testing.T) {
	c, w := newTestContext()
	BadRequest(c, "display_name too short")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "bad_request", resp.Error)
	assert.Equal(t, "display_name too short", resp.Message)
}

func TestConflictDefaultsMessage(t *testing.T) {
	c, w := newTestContext()
	Conflict(c, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "resource conflict", resp.Message)
}

func TestTooManyRequests(t *testing.T) {
	c, w := newTestContext()
	TooManyRequests(c)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "too_many_requests", resp.Error)
}

func TestInternalErrorClassifiesAndSanitizes(t *testing.T) {
	c, w := newTestContext()
	InternalError(c, "", errors.New("database is unreachable"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "server_error", resp.Error)
	assert.Equal(t, "an error occurred", resp.Message)
	assert.Contains(t, resp.Details, "database is unreachable")
}
