package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "created", map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "created", body["message"])
	assert.NotContains(t, body, "error")
}

func TestErrorWithData(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWithData(rec, http.StatusConflict, "busy", map[string]string{"code": "x"}, map[string]string{"state": "submitting"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]interface{}{"state": "submitting"}, body["data"])
	assert.Equal(t, map[string]interface{}{"code": "x"}, body["error"])
}

func TestDefaultMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "")
	assert.Equal(t, "Resource not found", decode(t, rec)["message"])

	rec = httptest.NewRecorder()
	Unauthorized(rec, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decode(t, rec)["message"])
}
