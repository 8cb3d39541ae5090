package sedarapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/metrics"
)

var tracer = otel.Tracer("sedar-api-client")

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Token is used when the context carries no auth context (CLI, jobs).
	Token           string
	RequestIDHeader string
	HTTPClient      *http.Client
	Logger          logrus.FieldLogger
}

// Client talks to the SEDAR REST backend.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	token           string
	requestIDHeader string
	log             logrus.FieldLogger
}

func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid backend url: %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	header := opts.RequestIDHeader
	if header == "" {
		header = "X-Request-ID"
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL:         u,
		httpClient:      httpClient,
		token:           strings.TrimSpace(opts.Token),
		requestIDHeader: header,
		log:             log,
	}, nil
}

// ListParams selects a page of a lookup resource. All requests the whole
// active list unpaginated (status=active&pagination=none).
type ListParams struct {
	Page    int
	PerPage int
	Status  string
	Search  string
	All     bool
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.All {
		q.Set("status", "active")
		q.Set("pagination", "none")
		if p.Search != "" {
			q.Set("search", p.Search)
		}
		return q
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

// GetEntity returns the raw record body; normalization is the caller's job.
func (c *Client) GetEntity(ctx context.Context, resource, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(ErrNotFound, "empty entity id")
	}
	return c.do(ctx, http.MethodGet, resource, resourcePath(resource, id), nil, nil, "")
}

// ListOptions fetches lookup rows. Both {"data": [...]} and bare arrays are accepted.
func (c *Client) ListOptions(ctx context.Context, resource string, params ListParams) ([]map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, resource, resourcePath(resource, ""), params.query(), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

func decodeRows(body []byte) ([]map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []map[string]any{}, nil
	}
	dec := func(b []byte) ([]map[string]any, error) {
		var rows []map[string]any
		d := json.NewDecoder(bytes.NewReader(b))
		d.UseNumber()
		if err := d.Decode(&rows); err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	if body[0] == '[' {
		rows, err := dec(body)
		if err != nil {
			return nil, errors.Wrap(ErrBadResponse, err.Error())
		}
		return rows, nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Data) == 0 {
		return nil, errors.Wrap(ErrBadResponse, "expected a list or a data envelope")
	}
	// paginated envelopes nest the rows once more: {"data": {"data": [...]}}
	inner := bytes.TrimSpace(envelope.Data)
	if len(inner) > 0 && inner[0] == '{' {
		return decodeRows(inner)
	}
	rows, err := dec(inner)
	if err != nil {
		return nil, errors.Wrap(ErrBadResponse, err.Error())
	}
	return rows, nil
}

// Create posts a new entity.
func (c *Client) Create(ctx context.Context, resource string, payload formstate.WirePayload) ([]byte, error) {
	return c.send(ctx, resource, resourcePath(resource, ""), payload)
}

// Update posts to the entity URL; the payload carries the _method=PATCH override.
func (c *Client) Update(ctx context.Context, resource, id string, payload formstate.WirePayload) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(ErrNotFound, "empty entity id")
	}
	return c.send(ctx, resource, resourcePath(resource, id), payload)
}

// Submit routes to Create or Update by mode.
func (c *Client) Submit(ctx context.Context, resource, id string, mode formstate.Mode, payload formstate.WirePayload) ([]byte, error) {
	switch mode {
	case formstate.ModeCreate:
		return c.Create(ctx, resource, payload)
	case formstate.ModeEdit:
		return c.Update(ctx, resource, id, payload)
	default:
		return nil, formstate.ErrNotSubmittable
	}
}

func (c *Client) send(ctx context.Context, resource, path string, payload formstate.WirePayload) ([]byte, error) {
	var buf bytes.Buffer
	contentType := "application/json"
	if payload.NeedsMultipart() {
		ct, err := payload.WriteMultipart(&buf)
		if err != nil {
			return nil, err
		}
		contentType = ct
	} else if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	return c.do(ctx, http.MethodPost, resource, path, nil, &buf, contentType)
}

func resourcePath(resource, id string) string {
	p := "/" + strings.Trim(resource, "/")
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Client) authorization(ctx context.Context) string {
	if auth, err := composables.UseAuth(ctx); err == nil {
		return auth.Authorization()
	}
	if c.token != "" {
		return "Bearer " + c.token
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, resource, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "sedarapi."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("sedar.resource", resource),
		),
	)
	defer span.End()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := composables.UseRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(c.requestIDHeader, requestID)
	if authz := c.authorization(ctx); authz != "" {
		req.Header.Set("Authorization", authz)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendLatency.WithLabelValues(method, resource).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(method, resource, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.BackendRequests.WithLabelValues(method, resource, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		span.SetStatus(codes.Error, apiErr.Error())
		c.log.WithFields(logrus.Fields{
			"request-id": requestID,
			"method":     method,
			"resource":   resource,
			"status":     resp.StatusCode,
		}).Warn("sedar api request rejected")
		return nil, apiErr
	}
	return respBody, nil
}
