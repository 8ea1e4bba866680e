package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lavanderia/internal/amqp"
	"lavanderia/internal/core"
	"lavanderia/internal/export"
	"lavanderia/internal/storage"
)

// ReportWorker mirrors ledger writes into the report sink. It consumes
// ledger events, loads the row from the database, and appends it as one
// report row. The sink is append-only: deletions are logged, not mirrored.
type ReportWorker struct {
	repo *storage.Repository
	sink export.RowAppender
}

func NewReportWorker(repo *storage.Repository, sink export.RowAppender) *ReportWorker {
	return &ReportWorker{
		repo: repo,
		sink: sink,
	}
}

// HandleLedgerEvent processes one event. A recorded transaction that no
// longer exists (deleted before the worker caught up) is skipped without
// error so the delivery is not requeued forever.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	switch event.Kind {
	case amqp.KindTransactionRecorded:
		return w.exportTransaction(ctx, event)
	case amqp.KindTransactionDeleted:
		slog.InfoContext(ctx, "Transaction deleted, report sink is append-only",
			"transaction_id", event.TransactionID,
			"user_id", event.UserID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown ledger event kind", "kind", event.Kind)
		return nil
	}
}

func (w *ReportWorker) exportTransaction(ctx context.Context, event *amqp.LedgerEvent) error {
	transaction, err := w.repo.GetTransaction(ctx, event.UserID, event.TransactionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before export, skipping",
				"transaction_id", event.TransactionID,
				"user_id", event.UserID)
			return nil
		}
		return fmt.Errorf("load transaction %d: %w", event.TransactionID, err)
	}

	ref, err := w.sink.Append(ctx, transaction)
	if err != nil {
		return fmt.Errorf("append transaction %d to report sink: %w", event.TransactionID, err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", transaction.ID,
		"user_id", transaction.UserID,
		"sink_ref", ref,
		"descricao", transaction.Descricao,
		"valor_cents", transaction.Valor.Cents)

	return nil
}
