package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediaondemand/conversion"
)

const (
	previewMaxChars = 4000
	maxDocumentSize = 100 << 20
)

// ErrBadGateway marks an upstream answer that is not the expected document.
var ErrBadGateway = errors.New("bad upstream response")

// RemoteFetcher proxies documents from a fixed set of trusted hosts and
// downloads provider result files. The proxy client re-checks the allow-list
// on every redirect; the download client follows provider redirects freely.
type RemoteFetcher struct {
	allowed        map[string]bool
	client         *http.Client
	downloadClient *http.Client
}

func NewRemoteFetcher(allowedHosts []string) *RemoteFetcher {
	allowed := make(map[string]bool, len(allowedHosts))
	for _, host := range allowedHosts {
		allowed[strings.ToLower(host)] = true
	}
	f := &RemoteFetcher{
		allowed:        allowed,
		downloadClient: &http.Client{Timeout: 60 * time.Second},
	}
	f.client = &http.Client{
		Timeout:       60 * time.Second,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

func (f *RemoteFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if _, err := f.validate(req.URL.String()); err != nil {
		return fmt.Errorf("%w: redirect to %s rejected", ErrBadGateway, req.URL.Hostname())
	}
	return nil
}

// Document is a fetched binary with the upstream's content type.
type Document struct {
	Body        []byte
	ContentType string
}

// FetchDocument fetches an EPUB from an allow-listed host. Disallowed or
// malformed URLs are rejected before any outbound request.
func (f *RemoteFetcher) FetchDocument(ctx context.Context, rawURL string) (*Document, error) {
	target, err := f.validate(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.get(ctx, f.client, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("%w: Upstream did not return an EPUB file", ErrBadGateway)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return &Document{Body: body, ContentType: contentType}, nil
}

// FetchTextPreview returns the first characters of a plain-text document.
func (f *RemoteFetcher) FetchTextPreview(ctx context.Context, rawURL string) (string, error) {
	target, err := f.validate(rawURL)
	if err != nil {
		return "", err
	}

	resp, err := f.get(ctx, f.client, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Four bytes per rune is enough to fill the preview.
	data, err := io.ReadAll(io.LimitReader(resp.Body, previewMaxChars*4+1))
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	runes := []rune(text)
	if len(runes) > previewMaxChars {
		runes = runes[:previewMaxChars]
	}
	return string(runes), nil
}

// Download streams a provider result file. The caller closes the body.
func (f *RemoteFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, f.downloadClient, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (f *RemoteFetcher) validate(rawURL string) (string, error) {
	if rawURL == "" {
		return "", conversion.NewError(conversion.ErrInvalidRequest, "Missing url parameter", nil)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" {
		return "", conversion.NewError(conversion.ErrInvalidRequest, "Invalid url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", conversion.NewError(conversion.ErrInvalidRequest, "Invalid url", nil)
	}
	if !f.allowed[strings.ToLower(parsed.Hostname())] {
		return "", conversion.NewError(conversion.ErrInvalidRequest, "Host not allowed", nil)
	}
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String(), nil
}

func (f *RemoteFetcher) get(ctx context.Context, client *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: Upstream %d", ErrBadGateway, resp.StatusCode)
	}
	return resp, nil
}
