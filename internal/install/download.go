package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/logging"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "VyltrexLauncher/1.0"
	// DefaultMaxRedirects is the redirect hop limit per download
	DefaultMaxRedirects = 10
)

var errTooManyRedirects = errors.New("too many redirects")

// Downloader fetches archives over HTTP(S). There is no overall timeout;
// game archives can take hours on slow links. Cancel the context instead.
type Downloader struct {
	client       *http.Client
	userAgent    string
	maxRedirects int
	logger       logging.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithMaxRedirects overrides DefaultMaxRedirects. Zero forbids redirects.
func WithMaxRedirects(n int) DownloaderOption {
	return func(d *Downloader) {
		if n >= 0 {
			d.maxRedirects = n
		}
	}
}

// WithTransport sets the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) DownloaderOption {
	return func(d *Downloader) {
		d.client.Transport = rt
	}
}

// WithDownloadLogger sets the logger.
func WithDownloadLogger(l logging.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logging.OrNop(l)
	}
}

// NewDownloader creates a new downloader
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:       &http.Client{},
		userAgent:    DefaultUserAgent,
		maxRedirects: DefaultMaxRedirects,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > d.maxRedirects {
			return fmt.Errorf("%w (limit %d)", errTooManyRedirects, d.maxRedirects)
		}
		// Go copies most headers on redirect; set it again in case the
		// hop crosses to a host that strips it.
		req.Header.Set("User-Agent", d.userAgent)
		return nil
	}
	return d
}

// Download fetches url into destPath. Bytes land in destPath+".part" and
// are renamed into place only after the body was read completely, so a
// failed download never leaves a file at destPath. onProgress, if not
// nil, receives whole percentages in ascending order and only when the
// server announced a Content-Length.
func (d *Downloader) Download(ctx context.Context, url, destPath string, onProgress func(float64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Network(err, "invalid download url %q", url)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return apperr.Network(err, "redirect limit exceeded for %s", url)
		}
		return apperr.Network(err, "request %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Network(nil, "unexpected status %d (%s) from %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".part"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	total := resp.ContentLength
	var w io.Writer = tmpFile
	if total > 0 && onProgress != nil {
		w = io.MultiWriter(tmpFile, &byteProgress{total: total, report: onProgress, last: -1})
	}

	d.logger.Debug("downloading", "url", url, "size", sizeLabel(total))

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return apperr.Network(ctx.Err(), "download of %s interrupted", url)
		}
		return apperr.Network(err, "read response body from %s", url)
	}
	if total > 0 && written != total {
		return apperr.Network(io.ErrUnexpectedEOF, "short body from %s: got %d of %d bytes", url, written, total)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	cleanupNeeded = false

	d.logger.Info("download complete", "url", url, "size", humanize.Bytes(uint64(written)))
	return nil
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}

// byteProgress converts bytes written into whole-percent callbacks,
// firing only when the rounded value advances.
type byteProgress struct {
	total   int64
	written int64
	last    float64
	report  func(float64)
}

func (p *byteProgress) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	pct := clampPercent(math.Round(float64(p.written) / float64(p.total) * 100))
	if pct > p.last {
		p.last = pct
		p.report(pct)
	}
	return len(b), nil
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
