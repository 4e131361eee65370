package service

import (
	"context"
	"fmt"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/port"
	"github.com/usethallo/thallo-api/internal/recurring"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var recurringTracer = otel.Tracer("service/recurring")

// detectionWindowMonths is how far back the detector looks for charges.
const detectionWindowMonths = 6

// RecurringReport is the full detection result for one user.
type RecurringReport struct {
	Charges      []recurring.Charge `json:"charges"`
	MonthlyTotal float64            `json:"monthly_total"`
	DetectedAt   time.Time          `json:"detected_at"`
}

// RecurringService runs the recurring charge detector over the user's
// recent expenses, with a short-lived cache in front.
type RecurringService struct {
	transactions port.TransactionStore
	categories   port.CategoryStore
	cache        port.Cache[*RecurringReport]
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewRecurringService creates the recurring charge service.
func NewRecurringService(
	transactions port.TransactionStore,
	categories port.CategoryStore,
	cache port.Cache[*RecurringReport],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RecurringService {
	return &RecurringService{
		transactions: transactions,
		categories:   categories,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// GetRecurringCharges detects the user's recurring charges. Results are
// cached; pass refresh to force a recompute.
func (s *RecurringService) GetRecurringCharges(ctx context.Context, userID string, refresh bool) (*RecurringReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := recurringTracer.Start(ctx, "RecurringService.GetRecurringCharges")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("recurring", time.Since(start))
	}()

	cacheKey := fmt.Sprintf("recurring:%s", userID)
	if !refresh {
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.metrics.IncrCacheHit("recurring")
			s.metrics.IncrDetectorRun("cached")
			return cached, nil
		}
	}
	s.metrics.IncrCacheMiss("recurring")

	var (
		expenses   []domain.Transaction
		categories []domain.Category
	)

	since := s.now().AddDate(0, -detectionWindowMonths, 0).Format("2006-01-02")

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.transactions.ListExpensesSince(gCtx, userID, since)
		if err != nil {
			s.metrics.IncrExternalError("transactions")
			return fmt.Errorf("expenses fetch: %w", err)
		}
		expenses = e
		return nil
	})
	g.Go(func() error {
		c, err := s.categories.ListCategories(gCtx, userID)
		if err != nil {
			s.metrics.IncrExternalError("categories")
			return fmt.Errorf("categories fetch: %w", err)
		}
		categories = c
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("recurring detection inputs failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.metrics.IncrDetectorRun("error")
		return nil, err
	}

	charges := recurring.Detect(toDetectorTransactions(expenses), toDetectorCategories(categories))

	report := &RecurringReport{
		Charges:      charges,
		MonthlyTotal: recurring.MonthlyTotal(charges),
		DetectedAt:   s.now(),
	}
	s.cache.Set(cacheKey, report)
	s.metrics.IncrDetectorRun("computed")

	s.logger.Debug("recurring charges detected",
		zap.String("user_id", userID),
		zap.Int("transactions", len(expenses)),
		zap.Int("charges", len(charges)),
	)

	return report, nil
}

// Invalidate drops the cached report, e.g. after a transaction import.
func (s *RecurringService) Invalidate(userID string) {
	s.cache.Delete(fmt.Sprintf("recurring:%s", userID))
}

func toDetectorTransactions(transactions []domain.Transaction) []recurring.Transaction {
	out := make([]recurring.Transaction, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, recurring.Transaction{
			ID:            t.ID,
			PayeeClean:    t.PayeeClean,
			PayeeOriginal: t.PayeeOriginal,
			Amount:        t.Amount,
			Date:          t.Date,
			CategoryID:    t.CategoryID,
		})
	}
	return out
}

func toDetectorCategories(categories []domain.Category) []recurring.Category {
	out := make([]recurring.Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, recurring.Category{
			ID:    c.ID,
			Name:  c.Name,
			Icon:  c.Icon,
			Color: c.Color,
		})
	}
	return out
}
