package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

const (
	defaultTimeout               = 15 * time.Second
	defaultBreakerFailures       = 5
	defaultBreakerTimeout        = 30 * time.Second
	errorBodyReadLimit     int64 = 1024
	apiKeyHeader                 = "X-API-Key"
)

var errBaseURLRequired = errors.New("commerce base url is required")

// Client talks to the remote commerce API that owns stores, products, orders and payments.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	failures   uint32
	openFor    time.Duration
	breaker    *gobreaker.CircuitBreaker[struct{}]
	metrics    *metrics.DependencyMetrics
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default instrumented HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sends key on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout bounds every call; the default is 15s.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBreaker trips the circuit after failures consecutive dependency errors and keeps it
// open for openFor.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.failures = failures
		}
		if openFor > 0 {
			c.openFor = openFor
		}
	}
}

// WithMetrics records call latency.
func WithMetrics(m *metrics.DependencyMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger reports breaker state changes.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// NewClient builds the commerce client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:  trimmed,
		timeout:  defaultTimeout,
		failures: defaultBreakerFailures,
		openFor:  defaultBreakerTimeout,
		logg:     logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Timeout:   client.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	failures := client.failures
	client.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "commerce",
		Timeout: client.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.HasCode(err, pkgerrors.CodeDependency)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := client.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			client.logg.Warn(ctx, "commerce.breaker.state_change")
		},
	})

	return client, nil
}

type envelope[T any] struct {
	Data T                `json:"data"`
	Meta *pagination.Meta `json:"meta,omitempty"`
}

type remoteError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListStores returns one page of the store directory.
func (c *Client) ListStores(ctx context.Context, q StoreQuery) (StorePage, error) {
	params := q.Page.Normalize()
	query := pageQuery(params)
	if s := strings.TrimSpace(q.Search); s != "" {
		query.Set("search", s)
	}
	var resp envelope[[]Store]
	if err := c.do(ctx, "list_stores", http.MethodGet, "/stores", query, nil, &resp); err != nil {
		return StorePage{}, err
	}
	return StorePage{Stores: resp.Data, Meta: metaOrDefault(resp.Meta, params, len(resp.Data))}, nil
}

// GetStore loads a store configuration by slug.
func (c *Client) GetStore(ctx context.Context, slug string) (Store, error) {
	if err := requireSlug(slug); err != nil {
		return Store{}, err
	}
	var resp envelope[Store]
	if err := c.do(ctx, "get_store", http.MethodGet, storePath(slug), nil, nil, &resp); err != nil {
		return Store{}, err
	}
	return resp.Data, nil
}

// ListProducts returns one page of a store catalogue.
func (c *Client) ListProducts(ctx context.Context, slug string, q ProductQuery) (ProductPage, error) {
	if err := requireSlug(slug); err != nil {
		return ProductPage{}, err
	}
	params := q.Page.Normalize()
	query := pageQuery(params)
	if s := strings.TrimSpace(q.Category); s != "" {
		query.Set("category", s)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query.Set("search", s)
	}
	var resp envelope[[]Product]
	if err := c.do(ctx, "list_products", http.MethodGet, storePath(slug, "products"), query, nil, &resp); err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Products: resp.Data, Meta: metaOrDefault(resp.Meta, params, len(resp.Data))}, nil
}

// GetProduct loads one product of a store.
func (c *Client) GetProduct(ctx context.Context, slug, productID string) (Product, error) {
	if err := requireSlug(slug); err != nil {
		return Product{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var resp envelope[Product]
	if err := c.do(ctx, "get_product", http.MethodGet, storePath(slug, "products", productID), nil, nil, &resp); err != nil {
		return Product{}, err
	}
	return resp.Data, nil
}

// PlaceOrder creates an order; the server recomputes every price.
func (c *Client) PlaceOrder(ctx context.Context, slug string, req OrderRequest) (PlacedOrder, error) {
	if err := requireSlug(slug); err != nil {
		return PlacedOrder{}, err
	}
	var resp envelope[PlacedOrder]
	if err := c.do(ctx, "place_order", http.MethodPost, storePath(slug, "orders"), nil, req, &resp); err != nil {
		return PlacedOrder{}, err
	}
	if strings.TrimSpace(resp.Data.OrderNumber) == "" {
		return PlacedOrder{}, pkgerrors.New(pkgerrors.CodeDependency, "order created without an order number")
	}
	return resp.Data, nil
}

// InitializePayment starts a hosted payment for an existing order.
func (c *Client) InitializePayment(ctx context.Context, slug string, req PaymentInitRequest) (PaymentSession, error) {
	if err := requireSlug(slug); err != nil {
		return PaymentSession{}, err
	}
	var resp envelope[PaymentSession]
	path := storePath(slug, "orders", req.OrderNumber, "payment", "initialize")
	if err := c.do(ctx, "initialize_payment", http.MethodPost, path, nil, req, &resp); err != nil {
		return PaymentSession{}, err
	}
	return resp.Data, nil
}

// VerifyPayment confirms a gateway reference against an order.
func (c *Client) VerifyPayment(ctx context.Context, slug, orderNumber, reference string) (PaymentVerification, error) {
	if err := requireSlug(slug); err != nil {
		return PaymentVerification{}, err
	}
	body := map[string]string{"reference": reference}
	var resp envelope[PaymentVerification]
	path := storePath(slug, "orders", orderNumber, "payment", "verify")
	if err := c.do(ctx, "verify_payment", http.MethodPost, path, nil, body, &resp); err != nil {
		return PaymentVerification{}, err
	}
	return resp.Data, nil
}

// GetOrder loads the tracked state of an order.
func (c *Client) GetOrder(ctx context.Context, slug, orderNumber string) (Order, error) {
	if err := requireSlug(slug); err != nil {
		return Order{}, err
	}
	var resp envelope[Order]
	if err := c.do(ctx, "get_order", http.MethodGet, storePath(slug, "orders", orderNumber), nil, nil, &resp); err != nil {
		return Order{}, err
	}
	return resp.Data, nil
}

// SubmitPaymentProof forwards bank transfer evidence for manual review.
func (c *Client) SubmitPaymentProof(ctx context.Context, slug, orderNumber string, proof PaymentProof) error {
	if err := requireSlug(slug); err != nil {
		return err
	}
	var resp envelope[json.RawMessage]
	return c.do(ctx, "submit_payment_proof", http.MethodPost, storePath(slug, "orders", orderNumber, "payment-proof"), nil, proof, &resp)
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}
	start := time.Now()
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, operation, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce api circuit open")
	}
	c.metrics.Observe(operation, time.Since(start), err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+operation+" request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+operation+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+operation+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return errorForStatus(operation, resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
	}
	return nil
}

// errorForStatus maps remote failures onto local codes. Client-side errors keep the
// remote message so shoppers see why an order was refused.
func errorForStatus(operation string, status int, raw []byte) error {
	var remote remoteError
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &remote) == nil && remote.Error.Message != "" {
		message = remote.Error.Message
	}
	cause := fmt.Errorf("status %d: %s", status, message)

	switch {
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, operation+": not found")
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, message)
	case status == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, message)
	case status == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, operation+": rate limited")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, operation+" request failed")
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func storePath(slug string, parts ...string) string {
	segments := []string{"stores", url.PathEscape(strings.TrimSpace(slug))}
	for _, part := range parts {
		segments = append(segments, url.PathEscape(part))
	}
	return "/" + strings.Join(segments, "/")
}

func pageQuery(params pagination.Params) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("page_size", strconv.Itoa(params.PageSize))
	return query
}

func metaOrDefault(meta *pagination.Meta, params pagination.Params, count int) pagination.Meta {
	if meta != nil {
		return *meta
	}
	return pagination.NewMeta(params, (params.Page-1)*params.PageSize+count)
}

func requireSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "store slug is required")
	}
	return nil
}
