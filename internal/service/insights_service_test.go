package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

func TestAnalyze_Success(t *testing.T) {
	caller := &mockInsightsCaller{
		answer: "You spent most on dining out.",
		usage:  &domain.CompletionUsage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
	}
	svc := service.NewInsightsService(caller, observability.NewMetrics(), zap.NewNop())

	resp, err := svc.Analyze(context.Background(), "u1", &domain.InsightRequest{
		Action: domain.ActionAnalyzeSpending,
		Data:   map[string]any{"total": 1200, "categories": []string{"dining", "rent"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Result != "You spent most on dining out." {
		t.Errorf("result = %q", resp.Result)
	}
}

func TestAnalyze_UnknownAction(t *testing.T) {
	svc := service.NewInsightsService(&mockInsightsCaller{}, observability.NewMetrics(), zap.NewNop())

	_, err := svc.Analyze(context.Background(), "u1", &domain.InsightRequest{
		Action: "write_poem",
		Data:   map[string]any{"x": 1},
	})

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAnalyze_MissingData(t *testing.T) {
	svc := service.NewInsightsService(&mockInsightsCaller{}, observability.NewMetrics(), zap.NewNop())

	_, err := svc.Analyze(context.Background(), "u1", &domain.InsightRequest{
		Action: domain.ActionFindSavings,
	})

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAnalyze_OversizedPayload(t *testing.T) {
	svc := service.NewInsightsService(&mockInsightsCaller{}, observability.NewMetrics(), zap.NewNop())

	_, err := svc.Analyze(context.Background(), "u1", &domain.InsightRequest{
		Action: domain.ActionAnalyzeSpending,
		Data:   strings.Repeat("x", 17*1024),
	})

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAnalyze_CallerError(t *testing.T) {
	caller := &mockInsightsCaller{err: &domain.ErrExternalService{Service: "openrouter"}}
	svc := service.NewInsightsService(caller, observability.NewMetrics(), zap.NewNop())

	_, err := svc.Analyze(context.Background(), "u1", &domain.InsightRequest{
		Action: domain.ActionAnalyzeSpending,
		Data:   map[string]any{"x": 1},
	})

	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}
