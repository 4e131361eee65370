package service

import (
	"context"
	"strings"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/port"
	"github.com/usethallo/thallo-api/internal/recurring"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var rulesTracer = otel.Tracer("service/rules")

// fuzzyMaxDistance is the largest edit distance a fuzzy rule accepts.
const fuzzyMaxDistance = 2

// applyScanLimit caps how many uncategorized entries one apply pass scans.
const applyScanLimit = 500

// RuleService manages category rules and applies them to uncategorized
// transactions.
type RuleService struct {
	rules        port.RuleStore
	transactions port.TransactionStore
	logger       *zap.Logger
}

// NewRuleService creates the rule service.
func NewRuleService(rules port.RuleStore, transactions port.TransactionStore, logger *zap.Logger) *RuleService {
	return &RuleService{
		rules:        rules,
		transactions: transactions,
		logger:       logger,
	}
}

// ListRules returns the user's rules.
func (s *RuleService) ListRules(ctx context.Context, userID string) ([]domain.CategoryRule, error) {
	ctx, span := rulesTracer.Start(ctx, "RuleService.ListRules")
	defer span.End()

	return s.rules.ListRules(ctx, userID)
}

// CreateRule validates and stores a new rule. Patterns are normalized the
// same way payees are, so exact matches line up with cleaned payee names.
func (s *RuleService) CreateRule(ctx context.Context, userID string, rule *domain.CategoryRule) (*domain.CategoryRule, error) {
	ctx, span := rulesTracer.Start(ctx, "RuleService.CreateRule")
	defer span.End()

	if strings.TrimSpace(rule.PayeePattern) == "" {
		return nil, &domain.ErrValidation{Field: "payee_pattern", Message: "required"}
	}
	if rule.CategoryID == "" {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "required"}
	}
	switch rule.MatchType {
	case domain.MatchExact, domain.MatchContains, domain.MatchFuzzy:
	case "":
		rule.MatchType = domain.MatchExact
	default:
		return nil, &domain.ErrValidation{Field: "match_type", Message: "must be exact, contains or fuzzy"}
	}

	rule.UserID = userID
	rule.PayeePattern = recurring.NormalizePayee(rule.PayeePattern)
	return s.rules.CreateRule(ctx, rule)
}

// DeleteRule removes a rule owned by the user.
func (s *RuleService) DeleteRule(ctx context.Context, userID, ruleID string) error {
	ctx, span := rulesTracer.Start(ctx, "RuleService.DeleteRule")
	defer span.End()

	if ruleID == "" {
		return &domain.ErrValidation{Field: "id", Message: "required"}
	}
	return s.rules.DeleteRule(ctx, userID, ruleID)
}

// ApplyRules runs every rule over the user's uncategorized transactions
// and assigns categories to the matches. First matching rule wins, in
// rule creation order.
func (s *RuleService) ApplyRules(ctx context.Context, userID string) (*domain.RuleApplyResult, error) {
	ctx, span := rulesTracer.Start(ctx, "RuleService.ApplyRules")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	rules, err := s.rules.ListRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &domain.RuleApplyResult{Matches: []domain.RuleMatch{}}
	if len(rules) == 0 {
		return result, nil
	}

	transactions, err := s.transactions.ListUncategorized(ctx, userID, applyScanLimit)
	if err != nil {
		return nil, err
	}
	result.Scanned = len(transactions)

	for _, tx := range transactions {
		// PayeeClean comes from upstream imports and may still carry
		// mixed case, so both sources go through normalization before
		// matching against the (already normalized) rule patterns.
		payee := tx.PayeeClean
		if payee == "" {
			payee = tx.PayeeOriginal
		}
		payee = recurring.NormalizePayee(payee)
		if payee == "" {
			continue
		}

		rule, ok := matchRule(rules, payee)
		if !ok {
			continue
		}

		if err := s.transactions.UpdateCategory(ctx, userID, tx.ID, rule.CategoryID); err != nil {
			s.logger.Warn("rule apply: category update failed",
				zap.String("user_id", userID),
				zap.String("transaction_id", tx.ID),
				zap.Error(err),
			)
			continue
		}

		result.Applied++
		result.Matches = append(result.Matches, domain.RuleMatch{
			TransactionID: tx.ID,
			Payee:         payee,
			CategoryID:    rule.CategoryID,
			MatchType:     rule.MatchType,
		})
	}

	s.logger.Info("category rules applied",
		zap.String("user_id", userID),
		zap.Int("scanned", result.Scanned),
		zap.Int("applied", result.Applied),
	)

	return result, nil
}

// matchRule returns the first rule matching the payee.
func matchRule(rules []domain.CategoryRule, payee string) (*domain.CategoryRule, bool) {
	for i := range rules {
		rule := &rules[i]
		switch rule.MatchType {
		case domain.MatchExact:
			if payee == rule.PayeePattern {
				return rule, true
			}
		case domain.MatchContains:
			// Either side may be the longer string: a rule for
			// "amazon" matches payee "amazon marketplace", and a rule
			// for "amazon marketplace" matches payee "amazon".
			if strings.Contains(payee, rule.PayeePattern) || strings.Contains(rule.PayeePattern, payee) {
				return rule, true
			}
		case domain.MatchFuzzy:
			if levenshtein.ComputeDistance(payee, rule.PayeePattern) <= fuzzyMaxDistance {
				return rule, true
			}
		}
	}
	return nil, false
}
