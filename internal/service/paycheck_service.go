package service

import (
	"context"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/port"
	"github.com/usethallo/thallo-api/internal/recurring"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var paycheckTracer = otel.Tracer("service/paycheck")

// planPaychecks is how many upcoming paychecks a plan covers.
const planPaychecks = 3

// Pay frequencies stored on the profile.
const (
	PayWeekly      = "weekly"
	PayBiweekly    = "biweekly"
	PaySemimonthly = "semimonthly"
	PayMonthly     = "monthly"
)

// PaycheckService projects upcoming paychecks and assigns each expected
// recurring charge to the paycheck that has to cover it.
type PaycheckService struct {
	profiles  port.ProfileStore
	recurring *RecurringService
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaycheckService creates the paycheck planning service.
func NewPaycheckService(profiles port.ProfileStore, recurringSvc *RecurringService, logger *zap.Logger) *PaycheckService {
	return &PaycheckService{
		profiles:  profiles,
		recurring: recurringSvc,
		logger:    logger,
		now:       time.Now,
	}
}

// Plan builds the paycheck plan for the user's next few pay periods.
func (s *PaycheckService) Plan(ctx context.Context, userID string) (*domain.PaycheckPlan, error) {
	ctx, span := paycheckTracer.Start(ctx, "PaycheckService.Plan")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.PayFrequency == "" {
		return nil, &domain.ErrValidation{Field: "pay_frequency", Message: "not set on profile"}
	}

	report, err := s.recurring.GetRecurringCharges(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	payDates := nextPayDates(profile, s.now(), planPaychecks+1)
	if len(payDates) < 2 {
		return nil, &domain.ErrValidation{Field: "next_pay_date", Message: "not set on profile"}
	}

	perCheck := paycheckAmount(profile.MonthlyIncome, profile.PayFrequency)

	plan := &domain.PaycheckPlan{
		PayFrequency: profile.PayFrequency,
		Paychecks:    make([]domain.Paycheck, 0, planPaychecks),
	}

	for i := 0; i < planPaychecks; i++ {
		periodStart := payDates[i]
		periodEnd := payDates[i+1]

		check := domain.Paycheck{
			Date:    periodStart.Format("2006-01-02"),
			Amount:  perCheck,
			Charges: []domain.UpcomingCharge{},
		}

		for _, charge := range report.Charges {
			for _, due := range chargeDatesIn(charge, periodStart, periodEnd) {
				check.Charges = append(check.Charges, domain.UpcomingCharge{
					Payee:   charge.Payee,
					Amount:  charge.Amount,
					DueDate: due.Format("2006-01-02"),
				})
				check.TotalDue += charge.Amount
			}
		}
		check.Remaining = check.Amount - check.TotalDue

		plan.Paychecks = append(plan.Paychecks, check)
	}

	return plan, nil
}

// nextPayDates returns the next n pay dates starting from the profile's
// next_pay_date, rolled forward past today.
func nextPayDates(profile *domain.Profile, now time.Time, n int) []time.Time {
	next, err := time.Parse("2006-01-02", profile.NextPayDate)
	if err != nil {
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for next.Before(today) {
		next = advancePayDate(next, profile.PayFrequency)
	}

	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, next)
		next = advancePayDate(next, profile.PayFrequency)
	}
	return dates
}

// advancePayDate steps one pay period forward. Semimonthly pays on the
// 1st and 15th.
func advancePayDate(d time.Time, frequency string) time.Time {
	switch frequency {
	case PayWeekly:
		return d.AddDate(0, 0, 7)
	case PayBiweekly:
		return d.AddDate(0, 0, 14)
	case PaySemimonthly:
		if d.Day() < 15 {
			return time.Date(d.Year(), d.Month(), 15, 0, 0, 0, 0, time.UTC)
		}
		return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return d.AddDate(0, 1, 0)
	}
}

// paycheckAmount splits the monthly income into per-check amounts using
// the same average-cadence factors the detector uses.
func paycheckAmount(monthlyIncome float64, frequency string) float64 {
	switch frequency {
	case PayWeekly:
		return monthlyIncome / 4.33
	case PayBiweekly:
		return monthlyIncome / 2.17
	case PaySemimonthly:
		return monthlyIncome / 2
	default:
		return monthlyIncome
	}
}

// chargeDatesIn projects a charge's expected occurrences into [start, end).
func chargeDatesIn(charge recurring.Charge, start, end time.Time) []time.Time {
	due, err := time.Parse("2006-01-02", charge.NextExpectedDate)
	if err != nil {
		return nil
	}

	var dates []time.Time
	for due.Before(end) {
		if !due.Before(start) {
			dates = append(dates, due)
		}
		switch charge.Frequency {
		case recurring.Weekly:
			due = due.AddDate(0, 0, 7)
		case recurring.Biweekly:
			due = due.AddDate(0, 0, 14)
		default:
			due = due.AddDate(0, 1, 0)
		}
	}
	return dates
}
