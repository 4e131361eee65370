package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/usethallo/thallo-api/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var exportTracer = otel.Tracer("service/export")

// exportLimit caps how many entries one export fetches.
const exportLimit = 10000

// Export is a rendered CSV file ready to stream to the client.
type Export struct {
	ID       string
	Filename string
	Data     []byte
}

// ExportService renders ledger data as CSV downloads.
type ExportService struct {
	transactions port.TransactionStore
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService creates the export service.
func NewExportService(transactions port.TransactionStore, logger *zap.Logger) *ExportService {
	return &ExportService{
		transactions: transactions,
		logger:       logger,
		now:          time.Now,
	}
}

// ExportTransactionsCSV renders the user's transactions in [from, to) as
// CSV. Amounts go through decimal so exports never show float artifacts.
func (s *ExportService) ExportTransactionsCSV(ctx context.Context, userID, from, to string) (*Export, error) {
	ctx, span := exportTracer.Start(ctx, "ExportService.ExportTransactionsCSV")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	transactions, err := s.transactions.ListTransactions(ctx, userID, from, to, exportLimit)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "payee", "amount", "category_id", "notes"}); err != nil {
		return nil, err
	}
	for _, tx := range transactions {
		payee := tx.PayeeClean
		if payee == "" {
			payee = tx.PayeeOriginal
		}
		amount := decimal.NewFromFloat(tx.Amount).StringFixed(2)
		if err := w.Write([]string{tx.Date, payee, amount, tx.CategoryID, tx.Notes}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	export := &Export{
		ID:       exportID,
		Filename: fmt.Sprintf("transactions-%s.csv", s.now().Format("2006-01-02")),
		Data:     buf.Bytes(),
	}

	s.logger.Info("transactions exported",
		zap.String("user_id", userID),
		zap.String("export_id", exportID),
		zap.Int("rows", len(transactions)),
	)

	return export, nil
}
