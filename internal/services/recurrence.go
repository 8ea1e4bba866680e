package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

// RecurrenceService materializes recurring monthly definitions into ledger
// transactions. Generation is idempotent: a month is skipped when the user
// already holds a transaction with the definition's exact descricao in that
// calendar month. There is no stored link from transaction back to
// definition; the descricao match is the whole relationship.
type RecurrenceService struct {
	repo   *storage.Repository
	ledger *LedgerService
}

func NewRecurrenceService(repo *storage.Repository, ledger *LedgerService) *RecurrenceService {
	return &RecurrenceService{
		repo:   repo,
		ledger: ledger,
	}
}

// GenerateResult reports one GenerateForMonth run.
type GenerateResult struct {
	Criadas    int
	Transacoes []core.Transaction
}

// GenerateForMonth creates the missing transaction for every active
// definition of the user in now's calendar month. Candidate dates clamp the
// due day to the month's last day. Per-definition failures are logged and
// skipped; the run reports whatever it managed to create.
func (s *RecurrenceService) GenerateForMonth(ctx context.Context, userID int64, now time.Time) (GenerateResult, error) {
	definitions, err := s.repo.ListRecurringDefinitions(ctx, userID, true)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list active definitions: %w", err)
	}

	slog.InfoContext(ctx, "Generating recurring transactions",
		"user_id", userID,
		"active_definitions", len(definitions),
		"month", now.Format("2006-01"))

	result := GenerateResult{Transacoes: []core.Transaction{}}

	for _, def := range definitions {
		candidate := core.ClampedDate(now.Year(), now.Month(), def.DiaVencimento)

		created, ok, err := s.ledger.RecordUnlessExists(ctx, transactionFromDefinition(def, candidate))
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring definition",
				"definition_id", def.ID,
				"descricao", def.Descricao,
				"error", err)
			continue
		}
		if !ok {
			continue
		}

		result.Criadas++
		result.Transacoes = append(result.Transacoes, created)
	}

	slog.InfoContext(ctx, "Recurring generation complete",
		"user_id", userID,
		"created", result.Criadas,
		"checked", len(definitions))

	return result, nil
}

// CreateDefinition stores the rule and, when the current month's due date has
// already arrived, materializes that month's transaction right away so the
// user sees it without an explicit generate call. The immediate write goes
// through the same dedup rule as generation, so the two paths never
// double-create.
func (s *RecurrenceService) CreateDefinition(ctx context.Context, rd core.RecurringDefinition, now time.Time) (core.RecurringDefinition, *core.Transaction, error) {
	if err := rd.Validate(); err != nil {
		return core.RecurringDefinition{}, nil, err
	}

	rd.Ativa = true
	rd.ProximaGeracao = nextDueDate(rd.DiaVencimento, now)

	created, err := s.repo.CreateRecurringDefinition(ctx, rd)
	if err != nil {
		return core.RecurringDefinition{}, nil, fmt.Errorf("create definition: %w", err)
	}

	today := core.NewDate(now.Year(), now.Month(), now.Day())
	candidate := core.ClampedDate(now.Year(), now.Month(), created.DiaVencimento)
	if candidate.After(today.Time) {
		return created, nil, nil
	}

	tx, ok, err := s.ledger.RecordUnlessExists(ctx, transactionFromDefinition(created, candidate))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to materialize first occurrence",
			"definition_id", created.ID,
			"error", err)
		return created, nil, nil
	}
	if !ok {
		return created, nil, nil
	}
	return created, &tx, nil
}

func (s *RecurrenceService) Get(ctx context.Context, userID, id int64) (core.RecurringDefinition, error) {
	return s.repo.GetRecurringDefinition(ctx, userID, id)
}

func (s *RecurrenceService) List(ctx context.Context, userID int64) ([]core.RecurringDefinition, error) {
	return s.repo.ListRecurringDefinitions(ctx, userID, false)
}

// UpdateDefinition replaces the rule's fields and refreshes the advisory
// proxima_geracao. Already-materialized transactions are left untouched.
func (s *RecurrenceService) UpdateDefinition(ctx context.Context, rd core.RecurringDefinition, now time.Time) (core.RecurringDefinition, error) {
	if err := rd.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}

	rd.ProximaGeracao = nextDueDate(rd.DiaVencimento, now)

	if err := s.repo.UpdateRecurringDefinition(ctx, rd); err != nil {
		return core.RecurringDefinition{}, err
	}
	return rd, nil
}

// SetAtiva toggles only the active flag.
func (s *RecurrenceService) SetAtiva(ctx context.Context, userID, id int64, ativa bool) error {
	return s.repo.SetRecurringAtiva(ctx, userID, id, ativa)
}

// DeleteDefinition removes the rule. Transactions it generated stay in the
// ledger.
func (s *RecurrenceService) DeleteDefinition(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteRecurringDefinition(ctx, userID, id)
}

// Projections lists the next occurrences of every active definition over the
// coming months, for display. Nothing is written.
func (s *RecurrenceService) Projections(ctx context.Context, userID int64, months int, now time.Time) ([]core.Projection, error) {
	if months < 1 {
		months = 1
	}

	definitions, err := s.repo.ListRecurringDefinitions(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("list active definitions: %w", err)
	}

	today := core.NewDate(now.Year(), now.Month(), now.Day())
	projections := []core.Projection{}

	for _, def := range definitions {
		offset := 0
		if core.ClampedDate(now.Year(), now.Month(), def.DiaVencimento).Before(today.Time) {
			offset = 1
		}

		for i := 0; i < months; i++ {
			anchor := time.Date(now.Year(), now.Month()+time.Month(offset+i), 1, 0, 0, 0, 0, time.UTC)
			projections = append(projections, core.Projection{
				DefinitionID: def.ID,
				Descricao:    def.Descricao,
				Valor:        def.Valor,
				Tipo:         def.Tipo,
				Categoria:    def.Categoria,
				Data:         core.ClampedDate(anchor.Year(), anchor.Month(), def.DiaVencimento),
			})
		}
	}

	sort.Slice(projections, func(i, j int) bool {
		if !projections[i].Data.Equal(projections[j].Data.Time) {
			return projections[i].Data.Before(projections[j].Data.Time)
		}
		return projections[i].DefinitionID < projections[j].DefinitionID
	})

	return projections, nil
}

// nextDueDate picks the first due date on or after today: this month's
// clamped due day, or next month's when it already passed.
func nextDueDate(diaVencimento int, now time.Time) core.Date {
	today := core.NewDate(now.Year(), now.Month(), now.Day())
	candidate := core.ClampedDate(now.Year(), now.Month(), diaVencimento)
	if candidate.Before(today.Time) {
		anchor := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		candidate = core.ClampedDate(anchor.Year(), anchor.Month(), diaVencimento)
	}
	return candidate
}

func transactionFromDefinition(def core.RecurringDefinition, data core.Date) core.Transaction {
	return core.Transaction{
		UserID:    def.UserID,
		Data:      data,
		Descricao: def.Descricao,
		Valor:     def.Valor,
		Tipo:      def.Tipo,
		Categoria: def.Categoria,
	}
}
