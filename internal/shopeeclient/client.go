// Package shopeeclient issues signed requests against the Shopee Open API
// v2 and classifies failures into the ingesterr kinds from spec.md §7.
package shopeeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"shopee-ingest/internal/ingesterr"
	"shopee-ingest/internal/signer"
)

const (
	apiPrefix         = "/api/v2"
	requestTimeout    = 25 * time.Second
	defaultPageSize   = 100
)

var tracer = otel.Tracer("shopeeclient")

// Client executes signed HTTP calls against one marketplace environment
// (production or sandbox, picked by the caller's baseURL).
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *signer.Signer
	limiter    *rate.Limiter
}

// New constructs a Client. limiter paces outgoing requests (spec.md §5's
// 500ms inter-batch / inter-lookup pacing is applied by the orchestrator;
// this limiter is a client-wide backstop against bursts).
func New(baseURL string, s *signer.Signer) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		signer:  s,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

func normalizePath(path string) string {
	if len(path) >= len(apiPrefix) && path[:len(apiPrefix)] == apiPrefix {
		return path
	}
	return apiPrefix + path
}

// call issues one signed HTTP request. method is GET or POST; for GET,
// query carries both common and caller params; for POST, common params go
// in the query string and caller params are the JSON body.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, accessToken string, shopID int64) (json.RawMessage, error) {
	path = normalizePath(path)

	ctx, span := tracer.Start(ctx, "shopee.api"+path,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("shopee.path", path),
			attribute.Int64("shopee.shop_id", shopID),
		))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ingesterr.TransportError{Op: "rate_limit_wait", Err: err}
	}

	timestamp := time.Now().Unix()
	sign := c.signer.Sign(path, timestamp, accessToken, shopID)

	if query == nil {
		query = url.Values{}
	}
	query.Set("partner_id", strconv.FormatInt(c.signer.PartnerID(), 10))
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	query.Set("sign", sign)
	if accessToken != "" {
		query.Set("access_token", accessToken)
	}
	if shopID != 0 {
		query.Set("shop_id", strconv.FormatInt(shopID, 10))
	}

	reqURL := c.baseURL + path + "?" + query.Encode()

	var bodyReader io.Reader
	if method == http.MethodPost && body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("shopeeclient: marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("shopeeclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ingesterr.TransportError{Op: "read_body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ingesterr.TransportError{
			Op:  fmt.Sprintf("http_status_%d", resp.StatusCode),
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &ingesterr.TransportError{Op: "decode_envelope", Err: err}
	}

	if env.Error != "" {
		span.SetAttributes(attribute.String("shopee.error_code", env.Error))
		return nil, &ingesterr.ApiError{Code: env.Error, Message: env.Message, Fatal: isFatalCode(env.Error)}
	}

	return env.Response, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ingesterr.TransportError{Op: "timeout", Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ingesterr.TransportError{Op: "connection_reset", Err: err}
	}
	return &ingesterr.TransportError{Op: "transport", Err: err}
}

// Page is one page of a cursor-paginated list response.
type Page struct {
	More       bool
	NextCursor string
}

// PaginateAll repeatedly invokes fetch with the next cursor until
// more=false, calling onPage for each decoded page. Page size defaults to
// 100 and is the caller's responsibility to set in fetch's params.
func PaginateAll[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (T, Page, error), onPage func(T) error) error {
	cursor := ""
	for {
		result, page, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if err := onPage(result); err != nil {
			return err
		}
		if !page.More {
			return nil
		}
		cursor = page.NextCursor
	}
}

// DefaultPageSize is the page size used when the caller does not override it.
const DefaultPageSize = defaultPageSize
