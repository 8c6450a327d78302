package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 1 << 20

// postJSON sends body and decodes the reply. An empty body decodes to an empty
// map. A non-JSON body is returned as {"text": raw}, except that a strict
// caller gets a TransportError for a non-JSON success body.
func postJSON(ctx context.Context, client *http.Client, url string, body any, strict bool) (map[string]any, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{URL: url, Err: err}
	}

	data := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &data); err != nil {
			if strict && ok(resp.StatusCode) {
				return nil, resp.StatusCode, &TransportError{URL: url, Err: fmt.Errorf("decode response: %w", err)}
			}
			data = map[string]any{"text": string(raw)}
		}
	}
	return data, resp.StatusCode, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// errorText pulls a message out of an error body.
func errorText(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, isString := data[key].(string); isString && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func stringList(v any) ([]string, bool) {
	list, isList := v.([]any)
	if !isList {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, isString := item.(string); isString {
			out = append(out, s)
		}
	}
	return out, true
}

// IsUpstream reports whether err came from a webhook's non-success reply.
func IsUpstream(err error) (*UpstreamError, bool) {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up, true
	}
	return nil, false
}
