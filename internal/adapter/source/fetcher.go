// Package source retrieves polling place workbooks over HTTP(S), FTP, or from
// the local filesystem.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/jlaffaye/ftp"
)

// maxDocumentSize bounds how much of a remote document is read into memory.
const maxDocumentSize = 256 << 20

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads source documents. It implements pipeline.Fetcher.
type Fetcher struct {
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Fetcher{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// Fetch retrieves the document at loc, which may be an http(s):// or ftp://
// URL, a file:// URL, or a plain filesystem path.
func (f *Fetcher) Fetch(ctx context.Context, loc string) (domain.Document, error) {
	u, err := url.Parse(loc)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return f.readFile(loc)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "ftp":
		return f.fetchFTP(ctx, u)
	case "file":
		return f.readFile(u.Path)
	default:
		return domain.Document{}, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL) (domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	f.logger.Debug("fetching source", "url", u.String())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Document{}, fmt.Errorf("http get: unexpected status %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{Name: baseName(u.Path), Data: data}, nil
}

func (f *Fetcher) fetchFTP(ctx context.Context, u *url.URL) (domain.Document, error) {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return domain.Document{}, errors.New("empty path in ftp url")
	}

	f.logger.Debug("ftp: connecting", "host", host, "path", u.Path)

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return domain.Document{}, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit() //nolint:errcheck // best-effort disconnect

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return domain.Document{}, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("ftp retrieve: %w", err)
	}
	defer resp.Close()

	data, err := readLimited(resp)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{Name: baseName(u.Path), Data: data}, nil
}

func (f *Fetcher) readFile(p string) (domain.Document, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read source file: %w", err)
	}
	return domain.Document{Name: baseName(p), Data: data}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("source exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	return path.Base(p)
}
