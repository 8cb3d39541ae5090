package sedarapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/tidwall/gjson"

	"github.com/iota-uz/sedar/pkg/composables"
)

// ProfilePath is the backend endpoint that describes the token owner.
const ProfilePath = "/user"

// Profile is the authenticated user as the backend reports it.
type Profile struct {
	ID          string
	Name        string
	Email       string
	Roles       []string
	Permissions []string
	Locale      string
}

// Profile resolves token against the backend. The token is sent as given,
// regardless of any auth context already stored in ctx.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Profile{}, ErrUnauthorized
	}
	ctx = composables.WithAuth(ctx, &composables.AuthContext{Token: token})
	body, err := c.do(ctx, http.MethodGet, "user", ProfilePath, nil, nil, "")
	if err != nil {
		return Profile{}, err
	}
	return parseProfile(body)
}

func parseProfile(body []byte) (Profile, error) {
	if !gjson.ValidBytes(body) {
		return Profile{}, errors.Wrap(ErrBadResponse, "profile is not json")
	}
	doc := gjson.ParseBytes(body)
	if d := doc.Get("data"); d.IsObject() {
		doc = d
	}
	if u := doc.Get("user"); u.IsObject() {
		doc = u
	}
	p := Profile{
		ID:     doc.Get("id").String(),
		Name:   firstString(doc, "name", "full_name", "username"),
		Email:  doc.Get("email").String(),
		Locale: firstString(doc, "locale", "language", "lang"),
	}
	if p.ID == "" {
		return Profile{}, errors.Wrap(ErrBadResponse, "profile has no id")
	}
	p.Roles = names(doc.Get("roles"))
	if len(p.Roles) == 0 {
		if r := doc.Get("role"); r.Exists() {
			p.Roles = names(r)
		}
	}
	p.Permissions = names(doc.Get("permissions"))
	return p, nil
}

func firstString(doc gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(doc.Get(k).String()); v != "" {
			return v
		}
	}
	return ""
}

// names accepts ["a","b"], [{"name":"a"}], "a" and {"name":"a"}.
func names(v gjson.Result) []string {
	var out []string
	add := func(r gjson.Result) {
		s := r.String()
		if r.IsObject() {
			s = firstString(r, "name", "slug", "code")
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			add(item)
		}
	case v.Exists() && v.Type != gjson.Null:
		add(v)
	}
	return out
}
