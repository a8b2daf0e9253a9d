package dav

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/davfs/webdav-go/internal/config"
)

const userAgent = "webdav-go/0.1"

// Action identifies a client operation; the dispatcher resolves it to an
// HTTP method and a default header set.
type Action string

// Actions understood by the dispatcher.
const (
	ActionOptions     Action = "options"
	ActionList        Action = "list"
	ActionFree        Action = "free"
	ActionInfo        Action = "info"
	ActionDownload    Action = "download"
	ActionUpload      Action = "upload"
	ActionCopy        Action = "copy"
	ActionMove        Action = "move"
	ActionMkdir       Action = "mkdir"
	ActionClean       Action = "clean"
	ActionCheck       Action = "check"
	ActionGetProperty Action = "get_property"
	ActionSetProperty Action = "set_property"
	ActionPublish     Action = "publish"
	ActionUnpublish   Action = "unpublish"
	ActionLock        Action = "lock"
	ActionUnlock      Action = "unlock"
)

// actionMethods is the fixed action to HTTP method table.
var actionMethods = map[Action]string{
	ActionOptions:     "OPTIONS",
	ActionList:        "PROPFIND",
	ActionFree:        "PROPFIND",
	ActionInfo:        "PROPFIND",
	ActionDownload:    http.MethodGet,
	ActionUpload:      http.MethodPut,
	ActionCopy:        "COPY",
	ActionMove:        "MOVE",
	ActionMkdir:       "MKCOL",
	ActionClean:       http.MethodDelete,
	ActionCheck:       http.MethodHead,
	ActionGetProperty: "PROPFIND",
	ActionSetProperty: "PROPPATCH",
	ActionPublish:     "PROPPATCH",
	ActionUnpublish:   "PROPPATCH",
	ActionLock:        "LOCK",
	ActionUnlock:      "UNLOCK",
}

// actionHeaders is the fixed per-action default header set.
var actionHeaders = map[Action]map[string]string{
	ActionList:        {"Accept": "*/*", "Depth": "1"},
	ActionFree:        {"Accept": "*/*", "Depth": "0", "Content-Type": "text/xml"},
	ActionInfo:        {"Accept": "*/*", "Depth": "1"},
	ActionCopy:        {"Accept": "*/*"},
	ActionMove:        {"Accept": "*/*"},
	ActionMkdir:       {"Accept": "*/*", "Connection": "Keep-Alive"},
	ActionClean:       {"Accept": "*/*", "Connection": "Keep-Alive"},
	ActionCheck:       {"Accept": "*/*"},
	ActionGetProperty: {"Accept": "*/*", "Depth": "1", "Content-Type": "application/x-www-form-urlencoded"},
	ActionSetProperty: {"Accept": "*/*", "Depth": "1", "Content-Type": "application/x-www-form-urlencoded"},
	ActionLock:        {"Accept": "*/*", "Content-Type": "application/xml"},
}

// Client is a WebDAV client. It owns the HTTP transport, which is shared and
// reused across calls; each call owns its own request/response exchange, so
// no mutual exclusion is needed beyond the explicit lock protocol.
type Client struct {
	settings   *config.Settings
	httpClient *http.Client
	logger     *slog.Logger

	// recvLimiter and sendLimiter cap download and upload throughput.
	// Nil means unlimited. Shared across all transfers on this client.
	recvLimiter *rate.Limiter
	sendLimiter *rate.Limiter

	// lockToken, when set, is attached to every request via Lock-Token and
	// If headers. Set only on clients derived by Lock.
	lockToken string
}

// NewClient creates a WebDAV client from resolved settings. When httpClient
// is nil, one is built from the settings (timeout, client certificate).
// Tests pass their own httpClient.
func NewClient(settings *config.Settings, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		built, err := buildHTTPClient(settings)
		if err != nil {
			return nil, err
		}

		httpClient = built
	}

	return &Client{
		settings:    settings,
		httpClient:  httpClient,
		logger:      logger,
		recvLimiter: newLimiter(settings.RecvSpeed),
		sendLimiter: newLimiter(settings.SendSpeed),
	}, nil
}

// buildHTTPClient assembles the transport: per-request timeout and, when a
// certificate pair is configured, the client TLS certificate.
func buildHTTPClient(settings *config.Settings) (*http.Client, error) {
	client := &http.Client{Timeout: settings.Timeout.Duration}

	if settings.HasClientCert() {
		cert, err := tls.LoadX509KeyPair(settings.CertPath, settings.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("dav: loading client certificate: %w", err)
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		client.Transport = transport
	}

	return client, nil
}

// Settings exposes the client's resolved connection settings.
func (c *Client) Settings() *config.Settings {
	return c.settings
}

// Logger exposes the client's logger for packages driving the client.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// urlFor builds the target URL from hostname, root prefix, and the quoted
// resource path.
func (c *Client) urlFor(quotedPath string) string {
	return c.settings.Hostname + c.settings.Root + quotedPath
}

// fullPath is the root-prefixed path as it appears in multistatus hrefs.
func (c *Client) fullPath(path string) string {
	root, err := url.PathUnescape(c.settings.Root)
	if err != nil {
		root = c.settings.Root
	}

	return root + path
}

// headersFor composes the request headers: per-action defaults, then caller
// extensions, then the Bearer token when one is configured, then lock
// headers on lock-scoped clients.
func (c *Client) headersFor(action Action, extra http.Header) http.Header {
	headers := make(http.Header)

	for key, value := range actionHeaders[action] {
		headers.Set(key, value)
	}

	for key, values := range extra {
		for _, value := range values {
			headers.Set(key, value)
		}
	}

	headers.Set("User-Agent", userAgent)

	if c.settings.Token != "" {
		headers.Set("Authorization", "Bearer "+c.settings.Token)
	}

	if c.lockToken != "" {
		headers.Set("Lock-Token", c.lockToken)
		headers.Set("If", "("+c.lockToken+")")
	}

	return headers
}

// execute issues one HTTP call for the given action and quoted path and
// classifies the response. Transport-level failures and non-2xx statuses are
// translated to the typed error taxonomy exactly once, here; callers let
// these errors propagate unmodified. 2xx/3xx responses pass through with the
// body unread — the caller owns closing it.
func (c *Client) execute(ctx context.Context, action Action, quotedPath string, body io.Reader, extra http.Header) (*http.Response, error) {
	method, ok := actionMethods[action]
	if !ok {
		return nil, fmt.Errorf("dav: unknown action %q", action)
	}

	target := c.urlFor(quotedPath)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %w", ErrRequest, target, err)
	}

	req.Header = c.headersFor(action, extra)

	// Basic auth only when no token is configured and both credentials are
	// present. Token precedence is handled in headersFor.
	if c.settings.Token == "" && c.settings.Login != "" && c.settings.Password != "" {
		req.SetBasicAuth(c.settings.Login, c.settings.Password)
	}

	c.logger.Debug("executing request",
		slog.String("action", string(action)),
		slog.String("method", method),
		slog.String("path", quotedPath),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(c.settings.Hostname, err)
	}

	if err := c.classifyStatus(action, quotedPath, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// classifyStatus maps a non-2xx/3xx response to a typed error, consuming and
// closing the body. First match wins.
func (c *Client) classifyStatus(action Action, quotedPath string, resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		body = []byte("(failed to read response body)")
	}

	path, err := url.PathUnescape(quotedPath)
	if err != nil {
		path = quotedPath
	}

	c.logger.Debug("request failed",
		slog.String("action", string(action)),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	switch resp.StatusCode {
	case http.StatusInsufficientStorage:
		return ErrInsufficientStorage
	case http.StatusNotFound:
		return notFound(path)
	case http.StatusLocked:
		return &PathError{Path: path, Err: ErrLocked}
	case http.StatusMethodNotAllowed:
		return &MethodError{Action: string(action), Server: c.settings.Hostname}
	default:
		return &ServerError{
			URL:        c.urlFor(quotedPath),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
}

// classifyTransportError distinguishes "cannot reach host" from
// request-level failures such as timeouts and malformed exchanges.
func classifyTransportError(hostname string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %s: %w", ErrNoConnection, hostname, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %s: %w", ErrNoConnection, hostname, err)
	}

	return fmt.Errorf("%w: %w", ErrRequest, err)
}
