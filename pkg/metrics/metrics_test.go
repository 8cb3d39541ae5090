package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestPrometheusController(t *testing.T) {
	FormSubmits.WithLabelValues("position", "ok").Inc()

	r := mux.NewRouter()
	c := NewPrometheusController("")
	require.Equal(t, "/debug/prometheus", c.Key())
	c.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `sedar_forms_submits_total{kind="position",outcome="ok"}`)
}
