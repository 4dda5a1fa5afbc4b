package proxmox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/metrics"
)

const (
	// authCookieName is the cookie carrying the session ticket.
	authCookieName = "PVEAuthCookie"
	// csrfHeaderName is the header carrying the anti-forgery token.
	csrfHeaderName = "CSRFPreventionToken"
)

// Options configures a Client.
type Options struct {
	// InsecureSkipVerify disables TLS certificate verification. Proxmox VE
	// ships with a self-signed certificate by default.
	InsecureSkipVerify bool

	// Timeout bounds every single HTTP request. Zero means no timeout.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client. When set, InsecureSkipVerify and
	// Timeout are ignored.
	HTTPClient *http.Client

	// Logger receives request-level debug events.
	Logger zerolog.Logger
}

// Client is the gateway to the Proxmox VE HTTP API.
//
// It attaches the session obtained by Login to every request, decodes the
// {"data": ...} envelope, and translates transport failures into the error
// taxonomy defined in errors.go.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger

	mu      sync.RWMutex
	session *Session
}

// NewClient creates a client for the API rooted at endpoint, for example
// "https://pve.example.com:8006/api2/json".
//
// A malformed endpoint is reported as a connection error, the same way it
// would be reported by the first request.
func NewClient(endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: err.Error(), Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		msg := fmt.Sprintf("unsupported endpoint scheme %q in %q", u.Scheme, endpoint)
		return nil, &Error{Kind: KindConnection, Message: msg}
	}
	if u.Host == "" {
		return nil, &Error{Kind: KindConnection, Message: fmt.Sprintf("endpoint %q has no host", endpoint)}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		httpClient.Timeout = opts.Timeout
		if opts.InsecureSkipVerify {
			if transport, ok := httpClient.Transport.(*http.Transport); ok {
				transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed PVE certificates
			}
		}
	}

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("component", "proxmox").Logger(),
	}, nil
}

// Endpoint returns the API root this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Document, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// Post issues a POST request with a form-encoded body. A nil form sends an
// empty body.
func (c *Client) Post(ctx context.Context, path string, form url.Values) (*Document, error) {
	var body io.Reader
	contentType := ""
	if form != nil {
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	return c.do(ctx, http.MethodPost, path, body, contentType)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Document, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "")
}

// Upload issues a multipart POST. The plain fields are written first, then
// the file content under the "filename" part, which is what the storage
// upload endpoint expects. The content is streamed, not buffered.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, filename string, content io.Reader) (*Document, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, filename, content))
	}()

	doc, err := c.do(ctx, http.MethodPost, path, pr, mw.FormDataContentType())
	_ = pr.Close()
	return doc, err
}

// writeMultipart writes the upload form. Field order is stable so servers
// see the metadata before the file body.
func writeMultipart(mw *multipart.Writer, fields map[string]string, filename string, content io.Reader) error {
	for _, key := range []string{"content", "node", "storage"} {
		if v, ok := fields[key]; ok {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	for key, v := range fields {
		if key == "content" || key == "node" || key == "storage" {
			continue
		}
		if err := mw.WriteField(key, v); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("filename", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

// do performs one request and maps its outcome onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Document, error) {
	start := time.Now()
	doc, err := c.roundTrip(ctx, method, path, body, contentType)
	metrics.APIRequestLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	metrics.APIRequestsTotal.WithLabelValues(method, result).Inc()

	return doc, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, contentType string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: err.Error(), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req)

	c.logger.Debug().Str("method", method).Str("path", path).Msg("Sending API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: err.Error(), Err: err}
	}

	if err := errorForStatus(resp); err != nil {
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("API request failed")
		return nil, err
	}

	return decodeDocument(data)
}

// decorate attaches the session credentials when a session exists.
func (c *Client) decorate(req *http.Request) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	if s == nil {
		return
	}
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: s.Ticket})
	req.Header.Set(csrfHeaderName, s.CSRFToken)
}

// errorForStatus maps a response status onto the taxonomy. 2xx is success;
// 401, 500 and 501 have dedicated kinds; anything else is a connection error.
func errorForStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := resp.Status
	if msg == "" {
		msg = strconv.Itoa(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotImplemented:
		return &Error{Kind: KindNotImplemented, Message: msg}
	case http.StatusInternalServerError:
		return &Error{Kind: KindServer, Message: msg}
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Message: msg}
	default:
		return &Error{Kind: KindConnection, Message: msg}
	}
}
