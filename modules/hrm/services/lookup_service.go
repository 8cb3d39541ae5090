package services

import (
	"context"
	"time"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/eventbus"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/metrics"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

// LookupService loads the active, unpaginated lookup lists forms choose from
// and caches them until the resource is written through a form.
type LookupService struct {
	backend   Backend
	publisher eventbus.EventBus
	cache     *lookupCache
	ttl       time.Duration
}

func NewLookupService(backend Backend, publisher eventbus.EventBus, ttl time.Duration) *LookupService {
	s := &LookupService{
		backend:   backend,
		publisher: publisher,
		cache:     newLookupCache(),
		ttl:       ttl,
	}
	publisher.Subscribe(s.onSubmitted)
	return s
}

func (s *LookupService) onSubmitted(ev *formsession.SubmittedEvent) {
	s.Invalidate(ev.Resource)
}

// Invalidate drops cached lists of resource.
func (s *LookupService) Invalidate(resource string) {
	s.cache.InvalidateResource(resource)
}

// Load returns the active options of src.
func (s *LookupService) Load(ctx context.Context, src forms.LookupSource) ([]formstate.Option, error) {
	key := src.Resource + "|" + src.LabelKey
	if opts, ok := s.cache.Get(key); ok {
		metrics.LookupCache.WithLabelValues("hit").Inc()
		return opts, nil
	}
	metrics.LookupCache.WithLabelValues("miss").Inc()
	rows, err := s.backend.ListOptions(ctx, src.Resource, sedarapi.ListParams{All: true})
	if err != nil {
		return nil, err
	}
	opts := formstate.OptionsFromRows(rows, src.LabelKey)
	s.cache.Set(src.Resource, key, opts, s.ttl)
	return opts, nil
}

// Source wraps Load in the loaded/error states the reconciler expects.
func (s *LookupService) Source(ctx context.Context, src forms.LookupSource) formstate.OptionSource {
	opts, err := s.Load(ctx, src)
	if err != nil {
		return formstate.OptionSource{Err: err}
	}
	return formstate.Loaded(opts)
}

// LoadAll fetches every lookup of form. Lists that fail are left out and
// logged; projection then falls back to ids and labels found in the record.
func (s *LookupService) LoadAll(ctx context.Context, form *forms.Form) formstate.Lookups {
	out := make(formstate.Lookups, len(form.Lookups))
	for name, src := range form.Lookups {
		opts, err := s.Load(ctx, src)
		if err != nil {
			composables.UseLogger(ctx).WithError(err).WithField("lookup", name).Warn("lookup list unavailable")
			continue
		}
		out[name] = opts
	}
	return out
}
