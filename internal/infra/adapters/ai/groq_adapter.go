package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"quickvision/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.VisionAdapter = (*GroqAdapter)(nil)

// GroqAdapter implements adapter.VisionAdapter against Groq's
// OpenAI-compatible Responses API. The request is hand-built: the payload
// shape (input_text + input_image parts) and the dual response format are
// narrow enough that an SDK buys nothing here.
type GroqAdapter struct {
	apiKey  string
	url     string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

func NewGroqAdapter(apiKey, url, model string, ratePerSec float64, burst int, timeout time.Duration) (*GroqAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("groq: empty api key")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GroqAdapter{
		apiKey:  apiKey,
		url:     url,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		timeout: timeout,
	}, nil
}

func (g *GroqAdapter) Name() string { return "groq" }

func (g *GroqAdapter) Describe(ctx context.Context, instruction string, imagePNG []byte) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
	reqBody := map[string]interface{}{
		"model": g.model,
		"input": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "input_text", "text": instruction},
					{"type": "input_image", "image_url": dataURL},
				},
			},
		},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("groq http %d: %s", resp.StatusCode, truncate(body, 200))
	}

	text, err := parseResponsesPayload(body)
	if err != nil {
		return "", err
	}
	return text, nil
}

// parseResponsesPayload accepts both wire shapes Groq has served for this
// endpoint: the Responses-style output array and the older Chat Completions
// choices array.
func parseResponsesPayload(body []byte) (string, error) {
	var payload struct {
		Output []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}

	for _, out := range payload.Output {
		for _, c := range out.Content {
			if c.Text != "" {
				return c.Text, nil
			}
		}
	}
	for _, ch := range payload.Choices {
		if ch.Message.Content != "" {
			return ch.Message.Content, nil
		}
	}
	return "", errors.New("groq: empty response")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
