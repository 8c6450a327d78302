package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
)

// FallbackRequest is posted to the fallback webhook for chat text that matched
// no ritual.
type FallbackRequest struct {
	Text         string          `json:"text"`
	LastMessages []model.Message `json:"lastMessages"`
	Tone         string          `json:"tone,omitempty"`
}

type FallbackProxy struct {
	client     *http.Client
	defaultURL string
}

func NewFallbackProxy(defaultURL string, timeout time.Duration) *FallbackProxy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FallbackProxy{client: &http.Client{Timeout: timeout}, defaultURL: strings.TrimSpace(defaultURL)}
}

func (p *FallbackProxy) WithHTTPClient(c *http.Client) *FallbackProxy {
	p.client = c
	return p
}

// DefaultURL is the configured webhook used when a caller passes none.
func (p *FallbackProxy) DefaultURL() string { return p.defaultURL }

// Forward posts req to url, or to the configured default when url is empty,
// and returns the decoded reply. A non-JSON reply is returned as {"text": raw}.
func (p *FallbackProxy) Forward(ctx context.Context, url string, req FallbackRequest) (map[string]any, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = p.defaultURL
	}
	if url == "" {
		return nil, apperrors.InvalidInput("No fallback webhook URL configured.")
	}
	if req.LastMessages == nil {
		req.LastMessages = []model.Message{}
	}

	data, status, err := postJSON(ctx, p.client, url, req, false)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		msg := errorText(data, "error")
		if msg == "" {
			msg = fmt.Sprintf("Fallback request failed (%d)", status)
		}
		return nil, &UpstreamError{Status: status, Message: msg, Data: data}
	}
	return data, nil
}
