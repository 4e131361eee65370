package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var insightsTracer = otel.Tracer("service/insights")

// maxInsightPayload caps the serialized data blob sent to the model.
const maxInsightPayload = 16 * 1024

const analyzeSpendingPrompt = "You are a personal finance assistant. " +
	"Analyze the user's spending data and point out the three most " +
	"significant patterns. Be specific about amounts and categories. " +
	"Keep the answer under 200 words and do not give investment advice."

const findSavingsPrompt = "You are a personal finance assistant. " +
	"Look at the user's recurring charges and spending data and suggest " +
	"concrete ways to save money, with estimated monthly amounts. " +
	"Keep the answer under 200 words and do not give investment advice."

// InsightsService sends spending data to the model API for analysis.
type InsightsService struct {
	caller  port.InsightsCaller
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewInsightsService creates the insights service.
func NewInsightsService(caller port.InsightsCaller, metrics *observability.Metrics, logger *zap.Logger) *InsightsService {
	return &InsightsService{
		caller:  caller,
		metrics: metrics,
		logger:  logger,
	}
}

// Analyze runs one of the supported analysis actions over the supplied
// spending data.
func (s *InsightsService) Analyze(ctx context.Context, userID string, req *domain.InsightRequest) (*domain.InsightResponse, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("action", req.Action),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("insights", time.Since(start))
	}()

	var system string
	switch req.Action {
	case domain.ActionAnalyzeSpending:
		system = analyzeSpendingPrompt
	case domain.ActionFindSavings:
		system = findSavingsPrompt
	default:
		return nil, &domain.ErrValidation{Field: "action", Message: "must be analyze_spending or find_savings"}
	}

	payload, err := json.Marshal(req.Data)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "data", Message: "must be JSON-serializable"}
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil, &domain.ErrValidation{Field: "data", Message: "required"}
	}
	if len(payload) > maxInsightPayload {
		return nil, &domain.ErrValidation{Field: "data", Message: fmt.Sprintf("payload exceeds %d bytes", maxInsightPayload)}
	}

	answer, usage, err := s.caller.Complete(ctx, system, string(payload))
	if err != nil {
		s.logger.Error("insight completion failed",
			zap.String("user_id", userID),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("openrouter")
		s.metrics.IncrInsightCall("error")
		return nil, err
	}

	if usage != nil {
		s.metrics.RecordTokens(usage.PromptTokens, usage.CompletionTokens)
	}
	s.metrics.IncrInsightCall("success")

	return &domain.InsightResponse{Result: answer}, nil
}
