package extract

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"
)

const (
	userAgent       = "spigell/resume-matcher"
	contentEncoding = "gzip"
	defaultTimeout  = 20 * time.Second
	// Job postings are small; anything larger is not a posting.
	defaultMaxBytes = 5 << 20
)

// Fetcher downloads job postings by URL.
type Fetcher struct {
	HTTPClient *http.Client
	UserAgent  string
	MaxBytes   int64
	logger     *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  userAgent,
		MaxBytes:   defaultMaxBytes,
		logger:     logger,
	}
}

// Fetch downloads rawURL and returns it as a document typed by its
// Content-Type header, or by sniffing when the header is missing.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Document{}, &Error{Source: rawURL, Reason: "not an http(s) url", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Document{}, &Error{Source: rawURL, Reason: "build request", Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.5")

	f.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Document{}, &Error{Source: rawURL, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, &Error{Source: rawURL, Reason: fmt.Sprintf("bad status: %s", resp.Status)}
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Document{}, &Error{Source: rawURL, Reason: "bad gzip body", Err: err}
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, f.MaxBytes+1))
	if err != nil {
		return Document{}, &Error{Source: rawURL, Reason: "read body", Err: err}
	}
	if int64(len(data)) > f.MaxBytes {
		return Document{}, &Error{Source: rawURL, Reason: fmt.Sprintf("body exceeds %d bytes", f.MaxBytes)}
	}

	name := path.Base(u.Path)
	mimeType := baseType(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = Detect(name, data)
	}

	f.logger.Debug("fetched document",
		zap.String("url", req.URL.String()),
		zap.String("mime", mimeType),
		zap.Int("bytes", len(data)),
	)

	return Document{Name: u.String(), Data: data, MIME: mimeType}, nil
}
