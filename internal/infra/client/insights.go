// Package client holds HTTP clients for external services other than
// Supabase. Currently just the OpenRouter completion API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// InsightsClient calls the OpenRouter chat completions API.
type InsightsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewInsightsClient creates a new InsightsClient.
func NewInsightsClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *InsightsClient {
	return &InsightsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *domain.CompletionUsage `json:"usage"`
}

// Complete sends a system + user prompt pair and returns the model's
// answer along with token usage.
func (c *InsightsClient) Complete(ctx context.Context, system, user string) (string, *domain.CompletionUsage, error) {
	ctx, span := tracer.Start(ctx, "InsightsClient.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	var chatResp chatResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(chatRequest{
				Model: c.model,
				Messages: []chatMessage{
					{Role: "system", Content: system},
					{Role: "user", Content: user},
				},
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/chat/completions", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("openrouter returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&chatResp)
		})
	})
	if err != nil {
		return "", nil, &domain.ErrExternalService{Service: "openrouter", Err: err}
	}

	if len(chatResp.Choices) == 0 {
		return "", nil, &domain.ErrExternalService{Service: "openrouter", Err: fmt.Errorf("empty choices in response")}
	}

	return chatResp.Choices[0].Message.Content, chatResp.Usage, nil
}
