package work

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/deepnoodle-ai/stepgraph/recoverable"
)

const maxBodyBytes = 1 << 20

var hrefPattern = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)

// Fetch performs an HTTP request. The result carries the body as
// 'extracted_content' and any hrefs found in it as 'links'.
type Fetch struct {
	client *http.Client
}

// NewFetch returns a Fetch using client, or a client with a 30 second
// timeout when client is nil
func NewFetch(client *http.Client) *Fetch {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetch{client: client}
}

func (f *Fetch) Name() string      { return "http" }
func (f *Fetch) Signature() string { return "(url, method, headers, body, json)" }

func (f *Fetch) Execute(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http requires a 'url' argument")
	}
	method, _ := args["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	payload, hasJSON := args["json"]
	if hasJSON {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json payload: %w", err)
		}
		body = bytes.NewReader(data)
	} else if text, ok := args["body"].(string); ok {
		body = strings.NewReader(text)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprint(value))
		}
	}
	if hasJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, recoverable.Mark(fmt.Errorf("%s %s: %s", req.Method, url, resp.Status))
	case resp.StatusCode >= 400:
		return nil, recoverable.Permanent(fmt.Errorf("%s %s: %s", req.Method, url, resp.Status))
	}

	links := []string{}
	for _, match := range hrefPattern.FindAllStringSubmatch(string(data), -1) {
		links = append(links, match[1])
	}
	return map[string]any{
		"url":               url,
		"status_code":       resp.StatusCode,
		"content_type":      resp.Header.Get("Content-Type"),
		"extracted_content": string(data),
		"links":             links,
	}, nil
}
