package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

func newRecurrence(t *testing.T) (*RecurrenceService, *storage.Repository, core.User) {
	t.Helper()
	repo := newTestRepo(t)
	ledger := newTestLedger(t, repo)
	user := createTestUser(t, repo, "recorrente@example.com")
	return NewRecurrenceService(repo, ledger), repo, user
}

func TestCreateDefinitionDueDayValidation(t *testing.T) {
	svc, _, user := newRecurrence(t)
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dia     int
		wantErr bool
	}{
		{"day zero", 0, true},
		{"day thirty-two", 32, true},
		{"negative day", -3, true},
		{"mid month", 15, false},
		{"first day", 1, false},
		{"last allowed day", 31, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateDefinition(context.Background(), core.RecurringDefinition{
				UserID:        user.ID,
				Descricao:     "Definicao " + tt.name,
				Valor:         core.Money{Cents: 10000},
				Tipo:          core.Despesa,
				Categoria:     "fixas",
				DiaVencimento: tt.dia,
			}, now)

			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Errorf("dia %d: got %v, want validation error", tt.dia, err)
				}
				return
			}
			if err != nil {
				t.Errorf("dia %d: unexpected error %v", tt.dia, err)
			}
		})
	}
}

func TestCreateDefinitionRejectsNonPositiveValor(t *testing.T) {
	svc, _, user := newRecurrence(t)
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	_, _, err := svc.CreateDefinition(context.Background(), core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Aluguel",
		Valor:         core.Money{Cents: 0},
		Tipo:          core.Despesa,
		Categoria:     "fixas",
		DiaVencimento: 5,
	}, now)
	if !core.IsValidation(err) {
		t.Errorf("got %v, want validation error", err)
	}
}

// A due day already past materializes the current month's transaction right
// away, and a follow-up generate call adds nothing on top of it.
func TestCreateDefinitionImmediateMaterialization(t *testing.T) {
	svc, repo, user := newRecurrence(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)

	def, tx, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Aluguel",
		Valor:         core.Money{Cents: 150000},
		Tipo:          core.Despesa,
		Categoria:     "fixas",
		DiaVencimento: 5,
	}, now)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if tx == nil {
		t.Fatal("expected an immediately materialized transaction")
	}
	if got := tx.Data.String(); got != "2024-06-05" {
		t.Errorf("transaction date = %s, want 2024-06-05", got)
	}
	if tx.Descricao != "Aluguel" || tx.Valor.Cents != 150000 || tx.Tipo != core.Despesa {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if got := def.ProximaGeracao.String(); got != "2024-07-05" {
		t.Errorf("proxima_geracao = %s, want 2024-07-05", got)
	}

	result, err := svc.GenerateForMonth(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("GenerateForMonth: %v", err)
	}
	if result.Criadas != 0 {
		t.Errorf("generate after immediate materialization created %d, want 0", result.Criadas)
	}

	all, err := repo.ListTransactions(ctx, user.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ledger holds %d transactions, want 1", len(all))
	}
}

func TestCreateDefinitionFutureDueDay(t *testing.T) {
	svc, _, user := newRecurrence(t)
	now := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

	def, tx, err := svc.CreateDefinition(context.Background(), core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Internet",
		Valor:         core.Money{Cents: 9900},
		Tipo:          core.Despesa,
		Categoria:     "fixas",
		DiaVencimento: 20,
	}, now)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if tx != nil {
		t.Errorf("due day still ahead, expected no transaction, got %+v", tx)
	}
	if got := def.ProximaGeracao.String(); got != "2024-06-20" {
		t.Errorf("proxima_geracao = %s, want 2024-06-20", got)
	}
}

func TestGenerateForMonthIdempotent(t *testing.T) {
	svc, repo, user := newRecurrence(t)
	ctx := context.Background()
	created := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

	for _, d := range []struct {
		descricao string
		dia       int
	}{
		{"Aluguel", 5},
		{"Energia", 12},
		{"Internet", 20},
	} {
		_, _, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
			UserID:        user.ID,
			Descricao:     d.descricao,
			Valor:         core.Money{Cents: 50000},
			Tipo:          core.Despesa,
			Categoria:     "fixas",
			DiaVencimento: d.dia,
		}, created)
		if err != nil {
			t.Fatalf("CreateDefinition %s: %v", d.descricao, err)
		}
	}

	now := time.Date(2024, time.June, 25, 14, 0, 0, 0, time.UTC)

	first, err := svc.GenerateForMonth(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("first GenerateForMonth: %v", err)
	}
	if first.Criadas != 3 {
		t.Fatalf("first run created %d, want 3", first.Criadas)
	}

	second, err := svc.GenerateForMonth(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("second GenerateForMonth: %v", err)
	}
	if second.Criadas != 0 {
		t.Errorf("second run created %d, want 0", second.Criadas)
	}

	all, err := repo.ListTransactions(ctx, user.ID, storage.TransactionFilter{Ano: 2024, Mes: time.June})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("month holds %d transactions, want 3", len(all))
	}
}

func TestGenerateForMonthClampsDueDay(t *testing.T) {
	svc, _, user := newRecurrence(t)
	ctx := context.Background()
	created := time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC)

	_, _, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Fatura",
		Valor:         core.Money{Cents: 20000},
		Tipo:          core.Despesa,
		Categoria:     "cartao",
		DiaVencimento: 31,
	}, created)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	result, err := svc.GenerateForMonth(ctx, user.ID, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateForMonth: %v", err)
	}
	if result.Criadas != 1 {
		t.Fatalf("created %d, want 1", result.Criadas)
	}
	if got := result.Transacoes[0].Data.String(); got != "2024-02-29" {
		t.Errorf("due day 31 in February = %s, want 2024-02-29", got)
	}
}

func TestGenerateForMonthSkipsInactive(t *testing.T) {
	svc, repo, user := newRecurrence(t)
	ctx := context.Background()
	created := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

	def, _, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Assinatura",
		Valor:         core.Money{Cents: 2990},
		Tipo:          core.Despesa,
		Categoria:     "lazer",
		DiaVencimento: 28,
	}, created)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if err := svc.SetAtiva(ctx, user.ID, def.ID, false); err != nil {
		t.Fatalf("SetAtiva: %v", err)
	}

	result, err := svc.GenerateForMonth(ctx, user.ID, time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateForMonth: %v", err)
	}
	if result.Criadas != 0 {
		t.Errorf("inactive definition generated %d transactions", result.Criadas)
	}

	all, err := repo.ListTransactions(ctx, user.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ledger holds %d transactions, want 0", len(all))
	}
}

func TestProjections(t *testing.T) {
	svc, _, user := newRecurrence(t)
	ctx := context.Background()
	created := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

	_, _, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Aluguel",
		Valor:         core.Money{Cents: 150000},
		Tipo:          core.Despesa,
		Categoria:     "fixas",
		DiaVencimento: 15,
	}, created)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	// Due day already passed: projections start next month.
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)
	projections, err := svc.Projections(ctx, user.ID, 3, now)
	if err != nil {
		t.Fatalf("Projections: %v", err)
	}
	want := []string{"2024-07-15", "2024-08-15", "2024-09-15"}
	if len(projections) != len(want) {
		t.Fatalf("got %d projections, want %d", len(projections), len(want))
	}
	for i, p := range projections {
		if p.Data.String() != want[i] {
			t.Errorf("projection %d = %s, want %s", i, p.Data.String(), want[i])
		}
	}
}

func TestProjectionsClampAcrossMonths(t *testing.T) {
	svc, _, user := newRecurrence(t)
	ctx := context.Background()
	created := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	_, _, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Fatura",
		Valor:         core.Money{Cents: 80000},
		Tipo:          core.Despesa,
		Categoria:     "cartao",
		DiaVencimento: 31,
	}, created)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	now := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	projections, err := svc.Projections(ctx, user.ID, 3, now)
	if err != nil {
		t.Fatalf("Projections: %v", err)
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	for i, p := range projections {
		if p.Data.String() != want[i] {
			t.Errorf("projection %d = %s, want %s", i, p.Data.String(), want[i])
		}
	}
}

func TestRecurringOwnershipIsolation(t *testing.T) {
	svc, repo, owner := newRecurrence(t)
	ctx := context.Background()
	other := createTestUser(t, repo, "intruso@example.com")
	now := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

	def, _, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        owner.ID,
		Descricao:     "Aluguel",
		Valor:         core.Money{Cents: 150000},
		Tipo:          core.Despesa,
		Categoria:     "fixas",
		DiaVencimento: 25,
	}, now)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	if _, err := svc.Get(ctx, other.ID, def.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get as other user = %v, want ErrNotFound", err)
	}

	def.UserID = other.ID
	if _, err := svc.UpdateDefinition(ctx, def, now); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update as other user = %v, want ErrNotFound", err)
	}
	if err := svc.SetAtiva(ctx, other.ID, def.ID, false); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetAtiva as other user = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteDefinition(ctx, other.ID, def.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete as other user = %v, want ErrNotFound", err)
	}

	// Generation for the other user sees none of the owner's definitions.
	result, err := svc.GenerateForMonth(ctx, other.ID, time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateForMonth: %v", err)
	}
	if result.Criadas != 0 {
		t.Errorf("other user generated %d transactions from owner's definitions", result.Criadas)
	}
}

func TestDeleteDefinitionKeepsTransactions(t *testing.T) {
	svc, repo, user := newRecurrence(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	def, tx, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		UserID:        user.ID,
		Descricao:     "Aluguel",
		Valor:         core.Money{Cents: 150000},
		Tipo:          core.Despesa,
		Categoria:     "fixas",
		DiaVencimento: 5,
	}, now)
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if tx == nil {
		t.Fatal("expected materialized transaction")
	}

	if err := svc.DeleteDefinition(ctx, user.ID, def.ID); err != nil {
		t.Fatalf("DeleteDefinition: %v", err)
	}

	if _, err := repo.GetTransaction(ctx, user.ID, tx.ID); err != nil {
		t.Errorf("transaction gone after rule deletion: %v", err)
	}
}
