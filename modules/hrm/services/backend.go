package services

import (
	"context"

	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

// Backend is the part of the SEDAR REST API the form layer consumes.
type Backend interface {
	GetEntity(ctx context.Context, resource, id string) ([]byte, error)
	ListOptions(ctx context.Context, resource string, params sedarapi.ListParams) ([]map[string]any, error)
	Submit(ctx context.Context, resource, id string, mode formstate.Mode, payload formstate.WirePayload) ([]byte, error)
}
