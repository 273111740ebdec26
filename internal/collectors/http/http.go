package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dray/internal/collectors"
	"dray/internal/importer"
	"dray/internal/logger"
	"dray/internal/xray"
	"dray/internal/xray/parser"
)

const defaultTimeout = 30 * time.Second

// maxBody caps how much of a subscription response is read.
const maxBody = 32 << 20

type URLCollector struct{}

// Collect fetches a subscription. Params: url (required), is_html,
// timeout (seconds) and the injected _proxy_url.
func (c *URLCollector) Collect(ctx context.Context, params map[string]interface{}) ([]string, error) {
	targetURL := collectors.String(params, "url")
	if targetURL == "" {
		return nil, fmt.Errorf("missing 'url' in collector config")
	}

	timeout := defaultTimeout
	if secs := collectors.Int(params, "timeout"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	client := &http.Client{Timeout: timeout}

	if proxyStr := collectors.String(params, "_proxy_url"); proxyStr != "" {
		pURL, err := url.Parse(proxyStr)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(pURL)}
		logger.Log.Debugf("HTTP Collector using proxy: %s", proxyStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	logger.Log.Debugf("Fetching URL: %s", targetURL)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if collectors.Bool(params, "is_html") {
		return xray.ExtractLinks(string(body)), nil
	}
	return SubscriptionLines(string(body)), nil
}

// SubscriptionLines reads a subscription body: either one link per line or
// the same list wrapped in Base64.
func SubscriptionLines(body string) []string {
	text := strings.TrimSpace(body)
	if !strings.Contains(text, "://") {
		if decoded, err := parser.DecodeBase64(strings.Join(strings.Fields(text), "")); err == nil {
			text = decoded
		}
	}
	return importer.Lines(text)
}

func init() {
	collectors.Register("http", func() collectors.Collector {
		return &URLCollector{}
	})
}
