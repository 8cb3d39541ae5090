package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusConflict, "SUBMIT_CODE_CONFLICT", "code taken", map[string]string{"request_id": "r1"}))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "SUBMIT_CODE_CONFLICT", env.Code)
	require.Equal(t, "r1", env.Meta["request_id"])
}

func TestDecodeJSON(t *testing.T) {
	var v map[string]string
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"edit"}`))
	require.NoError(t, DecodeJSON(r, 1024, &v))
	require.Equal(t, "edit", v["mode"])

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, DecodeJSON(r, 1024, &v), ErrEmptyBody)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":`))
	require.ErrorIs(t, DecodeJSON(r, 1024, &v), ErrInvalidJSON)
}

func TestIsMultipart(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	require.True(t, IsMultipart(r))
	r.Header.Set("Content-Type", "application/json")
	require.False(t, IsMultipart(r))
}
