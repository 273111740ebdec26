package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dray/internal/logger"
	"dray/internal/publishers"
	"dray/internal/xray/parser"
)

type Publisher struct{}

type fileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Sha     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type fileResponse struct {
	Sha string `json:"sha"`
}

type target struct {
	token   string
	apiURL  string
	branch  string
	message string
	retries int
}

func parseTarget(params map[string]interface{}) (target, error) {
	str := func(k string) string { s, _ := params[k].(string); return s }

	owner, repo, path := str("owner"), str("repo"), strings.TrimPrefix(str("path"), "/")
	t := target{
		token:   str("token"),
		branch:  str("branch"),
		message: str("message"),
	}
	if t.token == "" || owner == "" || repo == "" || path == "" {
		return t, fmt.Errorf("github publisher requires token, owner, repo, and path")
	}
	if t.message == "" {
		t.message = "Update proxy subscription [dray]"
	}
	if r, ok := params["retries"].(int); ok && r > 0 {
		t.retries = r
	}

	apiBase := strings.TrimRight(str("api_url"), "/")
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	t.apiURL = fmt.Sprintf("%s/repos/%s/%s/contents/%s", apiBase, owner, repo, path)
	return t, nil
}

// Publish creates or updates a file in a GitHub repository through the
// contents API. Params: token, owner, repo, path, branch, message,
// api_url, retries.
func (p *Publisher) Publish(ctx context.Context, servers []*parser.Descriptor, params map[string]interface{}) error {
	t, err := parseTarget(params)
	if err != nil {
		return err
	}
	payload, err := publishers.GenerateSubscriptionPayload(servers, params)
	if err != nil {
		return err
	}

	timeout := 30 * time.Second
	if d, ok := params["_timeout"].(time.Duration); ok && d > 0 {
		timeout = d
	}
	client := &http.Client{Timeout: timeout}
	if proxyStr, _ := params["_proxy_url"].(string); proxyStr != "" {
		if u, err := url.Parse(proxyStr); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
			logger.Log.Debugf("GitHub publisher using proxy: %s", proxyStr)
		}
	}

	sha, err := currentSha(ctx, client, t)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(fileRequest{
		Message: t.message,
		Content: base64.StdEncoding.EncodeToString([]byte(payload)),
		Sha:     sha,
		Branch:  t.branch,
	})
	err = withRetries(ctx, t.retries, "upload", func() error {
		req, err := newRequest(ctx, http.MethodPut, t.apiURL, t.token, body)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("github upload failed: %w", err)
	}
	return nil
}

// currentSha returns the blob sha of the existing file, or "" when it does
// not exist yet.
func currentSha(ctx context.Context, client *http.Client, t target) (string, error) {
	var sha string
	err := withRetries(ctx, t.retries, "fetch", func() error {
		req, err := newRequest(ctx, http.MethodGet, t.apiURL, t.token, nil)
		if err != nil {
			return err
		}
		if t.branch != "" {
			q := req.URL.Query()
			q.Set("ref", t.branch)
			req.URL.RawQuery = q.Encode()
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var existing fileResponse
			if err := json.NewDecoder(resp.Body).Decode(&existing); err != nil {
				return fmt.Errorf("failed to parse github response: %w", err)
			}
			sha = existing.Sha
			logger.Log.Debugf("GitHub: file exists (SHA: %s), updating", sha)
			return nil
		case http.StatusNotFound:
			sha = ""
			logger.Log.Debugf("GitHub: file not found, creating")
			return nil
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	})
	if err != nil {
		return "", fmt.Errorf("github fetch failed: %w", err)
	}
	return sha, nil
}

func newRequest(ctx context.Context, method, u, token string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func withRetries(ctx context.Context, retries int, what string, fn func() error) error {
	var err error
	for i := 0; i <= retries; i++ {
		logger.Log.Debugf("GitHub: %s (attempt %d/%d)", what, i+1, retries+1)
		if err = fn(); err == nil {
			return nil
		}
		if i < retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
	return err
}

func init() {
	publishers.Register("github", func() publishers.Publisher { return &Publisher{} })
}
