// Package crm is a typed client for the TuDescuento CRM REST API. Every call
// authenticates with a bearer key and maps non-2xx answers onto *APIError.
// Idempotent catalog reads can be cached in a storage.Storage backend.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tudescuento/mcp-server-go/internal/metrics"
	"github.com/tudescuento/mcp-server-go/storage"
)

const (
	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 30 * time.Second

	cacheKeyPrefix = "catalog:"
	maxErrorBody   = 1 << 20
)

// ErrInvalidBaseURL is returned by New for base URLs that are not absolute http(s) URLs.
var ErrInvalidBaseURL = errors.New("crm: invalid base url")

type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client

	cache    storage.Storage
	cacheTTL time.Duration

	log     *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCache caches catalog responses in s for ttl. A zero ttl disables caching.
func WithCache(s storage.Storage, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = s
		c.cacheTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Categories lists every discount category.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.getCached(ctx, "categories", "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PublicMemberships lists the memberships available for sale.
func (c *Client) PublicMemberships(ctx context.Context) (*PublicMembershipsResponse, error) {
	var out PublicMembershipsResponse
	if err := c.getCached(ctx, "memberships_public", "/memberships/public", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MembershipDiscounts lists the discounts bundled with a membership.
func (c *Client) MembershipDiscounts(ctx context.Context, membershipID int) (*MembershipDiscountsResponse, error) {
	var out MembershipDiscountsResponse
	p := "/memberships/" + strconv.Itoa(membershipID) + "/discounts"
	if err := c.getCached(ctx, "membership_discounts", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AlliedCommerce returns one allied commerce with its discounts.
func (c *Client) AlliedCommerce(ctx context.Context, id int) (*AlliedCommerce, error) {
	var out AlliedCommerceResponse
	if err := c.getCached(ctx, "allied_commerce", "/allied_commerces/"+strconv.Itoa(id), &out); err != nil {
		return nil, err
	}
	return &out.AlliedCommerce, nil
}

// AlliedCommercesByCategory returns a category with every allied commerce in it.
func (c *Client) AlliedCommercesByCategory(ctx context.Context, categoryID int) (*CategoryWithAlliedCommerces, error) {
	var out CategoryWithAlliedCommercesResponse
	p := "/categories/" + strconv.Itoa(categoryID) + "/allied_commerces"
	if err := c.getCached(ctx, "category_allied_commerces", p, &out); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

// CustomerByIdentification looks a customer up by identity document. The
// payload is returned undecoded because its shape varies between records.
func (c *Client) CustomerByIdentification(ctx context.Context, numeroIdentificacion string) (json.RawMessage, error) {
	var out json.RawMessage
	p := "/clients/by_identification/" + url.PathEscape(numeroIdentificacion)
	if err := c.do(ctx, "client_by_identification", http.MethodGet, p, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLead registers a sales prospect.
func (c *Client) CreateLead(ctx context.Context, req CreateLeadRequest) (*CreateLeadResponse, error) {
	var out CreateLeadResponse
	if err := c.do(ctx, "leads", http.MethodPost, "/leads", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SupportLogs pages through the support history of a customer.
func (c *Client) SupportLogs(ctx context.Context, q SupportLogsQuery) (*Page[SupportLog], error) {
	query := url.Values{}
	query.Set("numero_identificacion", q.NumeroIdentificacion)
	if q.CreatedAtStart != "" {
		query.Set("created_at_start", q.CreatedAtStart)
	}
	if q.CreatedAtEnd != "" {
		query.Set("created_at_end", q.CreatedAtEnd)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}

	var out Page[SupportLog]
	if err := c.do(ctx, "support_logs", http.MethodGet, "/support_history_logs", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSupportLog creates today's support case for the customer or appends
// to it when one already exists.
func (c *Client) CreateSupportLog(ctx context.Context, req CreateSupportLogRequest) (*CreateSupportLogResponse, error) {
	var out CreateSupportLogResponse
	if err := c.do(ctx, "support_logs_from_bot", http.MethodPost, "/support_history_logs/from_bot", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getCached serves GET p from the cache when possible and fills it on a miss.
// Cache failures are logged and never fail the call.
func (c *Client) getCached(ctx context.Context, endpoint, p string, out any) error {
	if c.cache == nil || c.cacheTTL <= 0 {
		return c.do(ctx, endpoint, http.MethodGet, p, nil, nil, out)
	}

	key := cacheKeyPrefix + p
	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, out); err == nil {
			c.log.DebugContext(ctx, "crm.cache.hit", slog.String("endpoint", endpoint))
			return nil
		}
		c.log.WarnContext(ctx, "crm.cache.corrupt", slog.String("endpoint", endpoint))
		_ = c.cache.Delete(ctx, key)
	case !errors.Is(err, storage.ErrMiss):
		c.log.WarnContext(ctx, "crm.cache.get.fail", slog.String("endpoint", endpoint), slog.String("err", err.Error()))
	}

	var raw json.RawMessage
	if err := c.do(ctx, endpoint, http.MethodGet, p, nil, nil, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("crm: decode %s response: %w", endpoint, err)
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.log.WarnContext(ctx, "crm.cache.set.fail", slog.String("endpoint", endpoint), slog.String("err", err.Error()))
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, p string, query url.Values, body any, out any) error {
	start := time.Now()
	log := c.log.With(slog.String("endpoint", endpoint), slog.String("http_method", method))

	u := *c.baseURL
	u.Path = c.baseURL.Path + p
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm: encode %s request: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("crm: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.CRMRequest(endpoint, metrics.OutcomeError)
		// url.Error embeds the request URL, which never carries the key.
		log.WarnContext(ctx, "crm.request.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return newNetworkError(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		_ = json.Unmarshal(raw, &eb)
		apiErr := newStatusError(res.StatusCode, eb)
		c.metrics.CRMRequest(endpoint, metrics.OutcomeError)
		log.InfoContext(ctx, "crm.request.status", slog.Int("status", res.StatusCode), slog.String("err_name", apiErr.Name), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return apiErr
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.CRMRequest(endpoint, metrics.OutcomeError)
		return newNetworkError(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		c.metrics.CRMRequest(endpoint, metrics.OutcomeError)
		return fmt.Errorf("crm: %s: %w", endpoint, ErrNoData)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.metrics.CRMRequest(endpoint, metrics.OutcomeError)
		return fmt.Errorf("crm: decode %s response: %w", endpoint, err)
	}

	c.metrics.CRMRequest(endpoint, metrics.OutcomeOK)
	log.DebugContext(ctx, "crm.request.ok", slog.Int("status", res.StatusCode), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return nil
}
