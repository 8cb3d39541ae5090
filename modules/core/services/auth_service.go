package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/eventbus"
	"github.com/iota-uz/sedar/pkg/kvstore"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

const sessionPrefix = "core:auth_sessions:v1:"

var ErrSessionExpired = errors.New("auth session expired")

// ProfileFetcher asks the backend who a bearer token belongs to.
type ProfileFetcher interface {
	Profile(ctx context.Context, token string) (sedarapi.Profile, error)
}

// LoggedInEvent and LoggedOutEvent bracket the life of an auth context.
type LoggedInEvent struct {
	Subject string
	At      time.Time
}

type LoggedOutEvent struct {
	Subject string
	At      time.Time
}

// AuthService creates auth contexts from backend tokens and keeps them in a
// TTL store under an opaque session id.
type AuthService struct {
	profiles  ProfileFetcher
	store     kvstore.Store
	publisher eventbus.EventBus
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(profiles ProfileFetcher, store kvstore.Store, publisher eventbus.EventBus, ttl time.Duration) *AuthService {
	return &AuthService{
		profiles:  profiles,
		store:     store,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Login verifies token against the backend profile endpoint and opens a session.
func (s *AuthService) Login(ctx context.Context, token string) (*composables.AuthContext, sedarapi.Profile, error) {
	profile, err := s.profiles.Profile(ctx, token)
	if err != nil {
		return nil, sedarapi.Profile{}, err
	}
	id, err := newSessionToken()
	if err != nil {
		return nil, sedarapi.Profile{}, errors.Wrap(err, "session token")
	}
	auth := &composables.AuthContext{
		ID:          id,
		Subject:     profile.ID,
		Token:       token,
		Roles:       profile.Roles,
		Permissions: profile.Permissions,
		Locale:      profile.Locale,
	}
	if s.ttl > 0 {
		auth.ExpiresAt = s.now().Add(s.ttl)
	}
	data, err := json.Marshal(auth)
	if err != nil {
		return nil, sedarapi.Profile{}, errors.Wrap(err, "encode auth session")
	}
	if err := s.store.Set(ctx, sessionPrefix+id, data, s.ttl); err != nil {
		return nil, sedarapi.Profile{}, err
	}
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"subject": auth.Subject,
		"session": id[:5],
	}).Info("auth session created")
	s.publisher.Publish(&LoggedInEvent{Subject: auth.Subject, At: s.now()})
	return auth, profile, nil
}

// Resolve implements the middleware credential lookup.
func (s *AuthService) Resolve(ctx context.Context, credential string) (*composables.AuthContext, error) {
	data, err := s.store.Get(ctx, sessionPrefix+credential)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, composables.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	var auth composables.AuthContext
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, errors.Wrap(err, "decode auth session")
	}
	if auth.Expired(s.now()) {
		if err := s.store.Delete(ctx, sessionPrefix+credential); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}
	return &auth, nil
}

// Logout tears the session down. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, auth *composables.AuthContext) error {
	if auth == nil || auth.ID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sessionPrefix+auth.ID); err != nil {
		return err
	}
	s.publisher.Publish(&LoggedOutEvent{Subject: auth.Subject, At: s.now()})
	return nil
}

// Cookie is the browser form of a session id.
func (s *AuthService) Cookie(auth *composables.AuthContext) *http.Cookie {
	conf := configuration.Use()
	domain := ""
	if conf.GoAppEnvironment == configuration.Production {
		domain = conf.Domain
	}
	return &http.Cookie{
		Name:     conf.SidCookieKey,
		Value:    auth.ID,
		Expires:  auth.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   conf.GoAppEnvironment == configuration.Production,
		Domain:   domain,
		Path:     "/",
	}
}

// ClearCookie expires the session cookie.
func (s *AuthService) ClearCookie() *http.Cookie {
	conf := configuration.Use()
	return &http.Cookie{
		Name:     conf.SidCookieKey,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Path:     "/",
	}
}
