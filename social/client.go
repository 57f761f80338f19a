package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// DefaultHTTPClient is used by fetchers that were not given a client.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// BearerClient returns a client that presents token as a bearer
// Authorization header. Requests go through base when it is set.
func BearerClient(ctx context.Context, base *http.Client, token string) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client
}

// GetJSON fetches endpoint and decodes a 2xx body into out. Every failure
// is a *ProviderError carrying the status and transport cause.
func GetJSON(ctx context.Context, client *http.Client, provider, operation, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &ProviderError{Provider: provider, Operation: operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: provider, Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &ProviderError{Provider: provider, Operation: operation, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		code, description, raw := ParseErrorBody(body)
		return &ProviderError{
			Provider:    provider,
			Operation:   operation,
			Status:      resp.StatusCode,
			Code:        code,
			Description: description,
			Raw:         raw,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{
			Provider:    provider,
			Operation:   operation,
			Status:      resp.StatusCode,
			Code:        "invalid_response",
			Description: "failed to decode response",
			Err:         err,
		}
	}

	return nil
}

// ParseErrorBody understands the OAuth2 error shape
// ({"error": "...", "error_description": "..."}) as well as the nested
// API shape used by Google and the Graph API ({"error": {"message": ...}})
// and GitHub's flat {"message": ...}.
func ParseErrorBody(body []byte) (string, string, map[string]any) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		switch e := payload["error"].(type) {
		case string:
			desc, _ := payload["error_description"].(string)
			return e, desc, payload
		case map[string]any:
			message, _ := e["message"].(string)
			code := ""
			if status, ok := e["status"].(string); ok && status != "" {
				code = status
			} else if typ, ok := e["type"].(string); ok && typ != "" {
				code = typ
			} else if num, ok := e["code"].(float64); ok {
				code = fmt.Sprintf("%d", int(num))
			}
			return code, message, e
		}
		if message, ok := payload["message"].(string); ok && message != "" {
			return "", message, payload
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "request failed"
	}
	return "", msg, nil
}
