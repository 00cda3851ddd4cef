package deck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openreel/deckbridge/internal/infrastructure/config"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
)

// Request describes a single ad-hoc call against the device REST surface.
type Request struct {
	// Path is the device path, relative to the control API base
	// (e.g. "/transports/0/play"). Must be non-empty and start with "/".
	Path string `json:"path"`

	// Method is the HTTP verb. Empty defaults to GET; only GET, POST and
	// PUT are allowed.
	Method string `json:"method"`

	// Body is an optional JSON payload.
	Body any `json:"body,omitempty"`
}

// Response is the uniform envelope returned for every proxied call that
// reached the device, regardless of the device's own status code or body
// format.
type Response struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Status int    `json:"status"`
	OK     bool   `json:"ok"`
	Body   any    `json:"body"`
}

// allowedMethods are the verbs the proxy will forward to the device.
var allowedMethods = map[string]struct{}{
	http.MethodGet:  {},
	http.MethodPost: {},
	http.MethodPut:  {},
}

// Proxy executes synchronous REST calls against the device control surface
// and normalizes its inconsistent response conventions (JSON body, empty
// body, non-2xx status, non-JSON text body) into a uniform envelope.
//
// Thread Safety: all methods are safe for concurrent use; concurrent
// requests share nothing but the underlying http.Client.
type Proxy struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewProxy creates a proxy for the configured device.
//
// Every request is bounded by the configured request timeout; expiry is
// surfaced as ErrUpstreamUnreachable.
func NewProxy(cfg config.DeckConfig, logger *logging.Logger) *Proxy {
	return &Proxy{
		baseURL: "http://" + cfg.Host + cfg.APIBase,
		httpClient: &http.Client{
			Timeout: cfg.GetRequestTimeout(),
		},
		logger: logger,
	}
}

// validate checks a request before any network I/O.
// Returned errors wrap ErrInvalidRequest.
func (r *Request) validate() (method string, err error) {
	if r.Path == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return "", fmt.Errorf("%w: path must start with /", ErrInvalidRequest)
	}

	method = strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}
	if _, ok := allowedMethods[method]; !ok {
		return "", fmt.Errorf("%w: method %q not allowed (use GET, POST or PUT)", ErrInvalidRequest, method)
	}

	return method, nil
}

// Execute performs one request against the device and returns the normalized
// envelope.
//
// Validation failures return ErrInvalidRequest before any network call.
// Transport-level failures (connection refused, timeout, DNS) return
// ErrUpstreamUnreachable. A device-side 4xx/5xx is NOT an error: it is
// reported transparently through the envelope's Status and OK fields so the
// caller can distinguish "the device rejected this command" from "the bridge
// could not talk to the device at all".
func (p *Proxy) Execute(ctx context.Context, req Request) (*Response, error) {
	method, err := req.validate()
	if err != nil {
		return nil, err
	}

	url := p.baseURL + req.Path

	var bodyReader io.Reader
	if req.Body != nil {
		payload, marshalErr := json.Marshal(req.Body)
		if marshalErr != nil {
			return nil, fmt.Errorf("%w: body is not serializable: %v", ErrInvalidRequest, marshalErr)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUpstreamUnreachable, method, url, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnreachable, err)
	}

	resp := &Response{
		URL:    url,
		Method: method,
		Status: httpResp.StatusCode,
		OK:     httpResp.StatusCode >= 200 && httpResp.StatusCode < 300,
		Body:   decodeBody(raw),
	}

	if p.logger != nil {
		p.logger.Debug("device call",
			"method", method,
			"url", url,
			"status", resp.Status,
			"ok", resp.OK,
		)
	}

	return resp, nil
}

// decodeBody normalizes a raw device response payload: valid JSON is parsed,
// other non-empty payloads pass through as raw text, and an empty payload
// yields nil.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return string(raw)
	}
	return parsed
}
