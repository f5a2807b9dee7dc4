// Package dispatch invokes job target methods on remote application modules over HTTP.
package dispatch

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
	"strings"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/domain/model"
)

const (
	maxResponseBodyBytes = 1 << 20
	maxErrorBodyBytes    = 512

	// HeaderTenantCode carries the acting tenant on outbound invocations.
	HeaderTenantCode = "X-Tenant-Code"
	// HeaderAccount carries the acting account on outbound invocations.
	HeaderAccount = "X-Account"
	// HeaderSessionToken carries the impersonation session token.
	HeaderSessionToken = "X-Session-Token"
)

// ErrModuleNotRouted is returned when no base URL can be resolved for a module.
var ErrModuleNotRouted = errors.New("no route configured for module")

// StatusError reports a non-2xx response from a module.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("dispatch: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("dispatch: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ErrorClass groups status errors by class for metrics, e.g. "dispatch_status_5xx".
func (e *StatusError) ErrorClass() string {
	return fmt.Sprintf("dispatch_status_%dxx", e.StatusCode/100)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Config     config.DispatchConfig
	HTTPClient *http.Client // Optional; built from Config (with OAuth2 when enabled) when nil
	Logger     *slog.Logger
}

// Client is the HTTP implementation of core.Dispatcher.
type Client struct {
	cfg    config.DispatchConfig
	http   *http.Client
	eval   resultEvaluator
	logger *slog.Logger
}

var _ core.Dispatcher = (*Client)(nil)

// NewClient builds a dispatch client. When OAuth2 is enabled and no HTTP client
// is supplied, ctx bounds token endpoint discovery.
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	cfg := opts.Config
	cfg.Sanitize()

	eval, err := newResultEvaluator(cfg.SuccessExpr, cfg.MessageExpr)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient, err = newHTTPClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		eval:   eval,
		logger: logger.With("component", "dispatch"),
	}, nil
}

// Invoke POSTs params as JSON to the module's path and maps the response envelope
// to a DispatchResult. Transport failures and non-2xx responses are errors.
func (c *Client) Invoke(
	ctx context.Context,
	module, path string,
	params model.Params,
) (model.DispatchResult, error) {
	endpoint, err := c.endpoint(module, path)
	if err != nil {
		return model.DispatchResult{}, err
	}

	body, err := model.EncodeParams(params)
	if err != nil {
		return model.DispatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.DispatchResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	applyIdentityHeaders(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.DispatchResult{}, fmt.Errorf("invoke %s: %w", endpoint, err)
	}
	raw, readErr := readBody(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return model.DispatchResult{}, fmt.Errorf("read response from %s: %w", endpoint, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.DispatchResult{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(raw, maxErrorBodyBytes)}
	}

	result, err := c.eval.evaluate(raw)
	if err != nil {
		return model.DispatchResult{}, fmt.Errorf("decode response from %s: %w", endpoint, err)
	}

	c.logger.DebugContext(ctx, "dispatch completed",
		"module", module,
		"path", path,
		"status", resp.StatusCode,
		"successful", result.Successful,
	)
	return result, nil
}

func (c *Client) endpoint(module, path string) (string, error) {
	module = strings.TrimSpace(module)
	base, ok := c.cfg.ModuleRoutes[module]
	if !ok {
		if c.cfg.GatewayURL == "" || module == "" {
			return "", fmt.Errorf("%w: %q", ErrModuleNotRouted, module)
		}
		base = c.cfg.GatewayURL + "/" + url.PathEscape(module)
	}
	return base + "/" + strings.TrimLeft(path, "/"), nil
}

func applyIdentityHeaders(ctx context.Context, h http.Header) {
	id, ok := model.IdentityFromContext(ctx)
	if !ok {
		return
	}
	if id.TenantCode != "" {
		h.Set(HeaderTenantCode, id.TenantCode)
	}
	if id.Account != "" {
		h.Set(HeaderAccount, id.Account)
	}
	if id.SessionToken != "" {
		h.Set(HeaderSessionToken, id.SessionToken)
	}
}

func readBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBodyBytes)
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// envelope is the default response shape returned by application modules.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
