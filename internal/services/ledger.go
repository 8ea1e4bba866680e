package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lavanderia/internal/amqp"
	"lavanderia/internal/cache"
	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

// LedgerService owns transaction reads and writes. Every write invalidates
// the cached dashboard for the affected month and publishes a best-effort
// AMQP event; neither failure mode fails the request, the row is already
// committed.
type LedgerService struct {
	repo       *storage.Repository
	amqpClient *amqp.Client
	summaries  cache.Cache[core.MonthSummary]
}

func NewLedgerService(repo *storage.Repository, amqpClient *amqp.Client, summaries cache.Cache[core.MonthSummary]) *LedgerService {
	return &LedgerService{
		repo:       repo,
		amqpClient: amqpClient,
		summaries:  summaries,
	}
}

// Record validates and inserts a transaction.
func (s *LedgerService) Record(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	s.invalidateMonth(created.UserID, created.Data)
	s.publish(ctx, amqp.KindTransactionRecorded, created.ID, created.UserID)

	return created, nil
}

// RecordUnlessExists inserts the transaction only if no transaction with the
// same description already sits in the same calendar month for the user.
// Both engines materialize through this path so the dedup rule stays in one
// place.
func (s *LedgerService) RecordUnlessExists(ctx context.Context, t core.Transaction) (core.Transaction, bool, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, false, err
	}

	created, ok, err := s.repo.CreateTransactionUnlessExists(ctx, t)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("record transaction: %w", err)
	}
	if !ok {
		return core.Transaction{}, false, nil
	}

	s.invalidateMonth(created.UserID, created.Data)
	s.publish(ctx, amqp.KindTransactionRecorded, created.ID, created.UserID)

	return created, true, nil
}

func (s *LedgerService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *LedgerService) List(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, f)
}

// Update rewrites the transaction in place. The previous row is loaded first
// so a date edit invalidates both the old and the new month's dashboard.
func (s *LedgerService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	previous, err := s.repo.GetTransaction(ctx, t.UserID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.invalidateMonth(t.UserID, previous.Data)
	s.invalidateMonth(t.UserID, t.Data)
	s.publish(ctx, amqp.KindTransactionRecorded, t.ID, t.UserID)

	return t, nil
}

func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	previous, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.invalidateMonth(userID, previous.Data)
	s.publish(ctx, amqp.KindTransactionDeleted, id, userID)

	return nil
}

// Dashboard returns the month summary, served from cache when fresh.
func (s *LedgerService) Dashboard(ctx context.Context, userID int64, ano int, mes time.Month) (core.MonthSummary, error) {
	key := summaryKey(userID, ano, mes)
	if s.summaries != nil {
		if summary, ok := s.summaries.Get(key); ok {
			return summary, nil
		}
	}

	summary, err := s.repo.MonthSummary(ctx, userID, ano, mes)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}

	if s.summaries != nil {
		s.summaries.Set(key, summary)
	}
	return summary, nil
}

// InvalidateUser drops every cached month for the user. Bulk rewrites
// (installment plan edits) use this instead of tracking touched months.
func (s *LedgerService) InvalidateUser(userID int64) {
	if s.summaries != nil {
		s.summaries.DeletePrefix(fmt.Sprintf("dash:%d:", userID))
	}
}

func (s *LedgerService) invalidateMonth(userID int64, d core.Date) {
	if s.summaries != nil {
		s.summaries.Delete(summaryKey(userID, d.Year(), d.Month()))
	}
}

func (s *LedgerService) publish(ctx context.Context, kind string, transactionID, userID int64) {
	if s.amqpClient == nil {
		return
	}
	event := amqp.NewLedgerEvent(kind, transactionID, userID)
	if err := s.amqpClient.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"transaction_id", transactionID,
			"error", err)
	}
}

func summaryKey(userID int64, ano int, mes time.Month) string {
	return fmt.Sprintf("dash:%d:%04d-%02d", userID, ano, int(mes))
}
