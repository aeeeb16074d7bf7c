// Package mirror saves a single web page to local disk as text.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

// DefaultDir is where pages are written when no directory is configured.
const DefaultDir = "Webpages_Backup"

// ValidationError is returned for a URL that is never fetched.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Reason)
}

// NetworkError is returned when the GET fails. Connect is set when the host
// could not be reached at all.
type NetworkError struct {
	URL     string
	Connect bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Connect {
		return fmt.Sprintf("cannot connect to %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Saver fetches pages with Client and writes them under Dir.
type Saver struct {
	Client *http.Client
	Dir    string
	logger *slog.Logger
}

// Option configures a Saver.
type Option func(*Saver)

// WithHTTPClient replaces the HTTP client, e.g. to inject a RoundTripper.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Saver) {
		s.Client = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) {
		s.logger = l
	}
}

// New returns a Saver writing into dir.
func New(dir string, opts ...Option) *Saver {
	if dir == "" {
		dir = DefaultDir
	}
	s := &Saver{
		Client: &http.Client{Timeout: 30 * time.Second},
		Dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FileName derives the on-disk name for a page from its host.
func FileName(u *url.URL) string {
	return strings.ReplaceAll(u.Host, ".", "_") + ".html"
}

// Parse checks that rawURL is an absolute http or https URL with a host.
func Parse(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil, &ValidationError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ValidationError{URL: rawURL, Reason: err.Error()}
	}
	if u.Host == "" {
		return nil, &ValidationError{URL: rawURL, Reason: "missing host"}
	}
	return u, nil
}

// Save performs one GET of rawURL and writes the body to Dir. The HTTP status
// is not checked. Nothing is written when the request fails.
func (s *Saver) Save(ctx context.Context, rawURL string) (string, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: err}
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "Page request failed", "url", rawURL, "error", err)
		return "", &NetworkError{URL: rawURL, Connect: isConnectError(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, FileName(u))
	text := decodeBody(body, resp.Header.Get("Content-Type"))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.InfoContext(ctx, "Page saved", "url", rawURL, "status", resp.StatusCode, "path", path, "bytes", len(text))
	return path, nil
}

// decodeBody converts body to UTF-8 using the charset of contentType. Without
// a usable charset, invalid UTF-8 sequences are replaced.
func decodeBody(body []byte, contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil && params["charset"] != "" {
		if enc, err := htmlindex.Get(params["charset"]); err == nil {
			if out, err := enc.NewDecoder().Bytes(body); err == nil {
				return string(out)
			}
		}
	}
	return strings.ToValidUTF8(string(body), "\uFFFD")
}

func isConnectError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
