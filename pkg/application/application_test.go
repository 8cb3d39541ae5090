package application

import (
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type fooService struct{ n int }

type keyedController struct{ key string }

func (c keyedController) Key() string          { return c.key }
func (c keyedController) Register(*mux.Router) {}

func TestServiceRegistry(t *testing.T) {
	app := New(&ApplicationOptions{})
	svc := &fooService{n: 7}
	app.RegisterServices(svc)

	got := app.Service(fooService{}).(*fooService)
	require.Same(t, svc, got)
	require.Panics(t, func() { app.Service(struct{}{}) })
}

func TestControllersSortedByKey(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterControllers(keyedController{"/hrm"}, keyedController{"/auth"}, keyedController{"/health"})
	var keys []string
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"/auth", "/health", "/hrm"}, keys)
	require.Equal(t, []string{"en", "zh"}, app.GetSupportedLanguages())
	require.NotNil(t, app.Bundle())
	require.NotNil(t, app.EventPublisher())
}
