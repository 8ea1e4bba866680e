package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

func newInstallments(t *testing.T) (*InstallmentService, *storage.Repository, core.User) {
	t.Helper()
	repo := newTestRepo(t)
	ledger := newTestLedger(t, repo)
	user := createTestUser(t, repo, "parcelada@example.com")
	return NewInstallmentService(repo, ledger), repo, user
}

func TestCreatePlanNotebook(t *testing.T) {
	svc, _, user := newInstallments(t)

	plan, transactions, err := svc.CreatePlan(context.Background(), core.InstallmentPlan{
		UserID:              user.ID,
		Descricao:           "Notebook",
		ValorTotal:          core.Money{Cents: 120000},
		TotalParcelas:       3,
		Tipo:                core.Despesa,
		Categoria:           "equipamentos",
		DataPrimeiraParcela: core.NewDate(2024, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.ValorParcela.Cents != 40000 {
		t.Errorf("valor_parcela = %d cents, want 40000", plan.ValorParcela.Cents)
	}

	want := []struct {
		descricao string
		data      string
	}{
		{"Notebook (1/3)", "2024-03-10"},
		{"Notebook (2/3)", "2024-04-10"},
		{"Notebook (3/3)", "2024-05-10"},
	}
	if len(transactions) != len(want) {
		t.Fatalf("created %d transactions, want %d", len(transactions), len(want))
	}
	for i, tx := range transactions {
		if tx.Descricao != want[i].descricao {
			t.Errorf("parcela %d descricao = %q, want %q", i+1, tx.Descricao, want[i].descricao)
		}
		if tx.Data.String() != want[i].data {
			t.Errorf("parcela %d data = %s, want %s", i+1, tx.Data.String(), want[i].data)
		}
		if tx.Valor.Cents != 40000 {
			t.Errorf("parcela %d valor = %d cents, want 40000", i+1, tx.Valor.Cents)
		}
	}
}

// Month-end first dates clamp per target month: the nominal day 31 lands on
// Feb 29 in a leap year and back on Mar 31.
func TestCreatePlanMonthEndRollout(t *testing.T) {
	svc, _, user := newInstallments(t)

	_, transactions, err := svc.CreatePlan(context.Background(), core.InstallmentPlan{
		UserID:              user.ID,
		Descricao:           "Reforma",
		ValorTotal:          core.Money{Cents: 300000},
		TotalParcelas:       3,
		Tipo:                core.Despesa,
		Categoria:           "manutencao",
		DataPrimeiraParcela: core.NewDate(2024, time.January, 31),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	for i, tx := range transactions {
		if tx.Data.String() != want[i] {
			t.Errorf("parcela %d data = %s, want %s", i+1, tx.Data.String(), want[i])
		}
	}
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _, user := newInstallments(t)

	tests := []struct {
		name string
		plan core.InstallmentPlan
	}{
		{
			"single parcela",
			core.InstallmentPlan{
				UserID: user.ID, Descricao: "Geladeira",
				ValorTotal: core.Money{Cents: 100000}, TotalParcelas: 1,
				Tipo: core.Despesa, Categoria: "equipamentos",
				DataPrimeiraParcela: core.NewDate(2024, time.March, 1),
			},
		},
		{
			"zero total",
			core.InstallmentPlan{
				UserID: user.ID, Descricao: "Geladeira",
				ValorTotal: core.Money{Cents: 0}, TotalParcelas: 3,
				Tipo: core.Despesa, Categoria: "equipamentos",
				DataPrimeiraParcela: core.NewDate(2024, time.March, 1),
			},
		},
		{
			"empty descricao",
			core.InstallmentPlan{
				UserID: user.ID, Descricao: "  ",
				ValorTotal: core.Money{Cents: 100000}, TotalParcelas: 3,
				Tipo: core.Despesa, Categoria: "equipamentos",
				DataPrimeiraParcela: core.NewDate(2024, time.March, 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreatePlan(context.Background(), tt.plan)
			if !core.IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

// Each parcela carries the rounded quotient and the last one is not adjusted,
// so the sum may drift from the total by at most one cent per extra parcela.
func TestCreatePlanSumDriftBound(t *testing.T) {
	svc, _, user := newInstallments(t)
	ctx := context.Background()

	tests := []struct {
		totalCents int64
		parcelas   int
	}{
		{10000, 3},
		{99999, 7},
		{100001, 2},
		{333333, 6},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_em_%d", tt.totalCents, tt.parcelas), func(t *testing.T) {
			plan, transactions, err := svc.CreatePlan(ctx, core.InstallmentPlan{
				UserID:              user.ID,
				Descricao:           fmt.Sprintf("Compra %d", i),
				ValorTotal:          core.Money{Cents: tt.totalCents},
				TotalParcelas:       tt.parcelas,
				Tipo:                core.Despesa,
				Categoria:           "diversos",
				DataPrimeiraParcela: core.NewDate(2024, time.March, 10),
			})
			if err != nil {
				t.Fatalf("CreatePlan: %v", err)
			}

			var sum int64
			for _, tx := range transactions {
				if tx.Valor.Cents != plan.ValorParcela.Cents {
					t.Errorf("parcela valor = %d, want %d", tx.Valor.Cents, plan.ValorParcela.Cents)
				}
				sum += tx.Valor.Cents
			}

			drift := sum - tt.totalCents
			if drift < 0 {
				drift = -drift
			}
			if maxDrift := int64(tt.parcelas - 1); drift > maxDrift {
				t.Errorf("sum %d drifts %d cents from total %d, bound is %d", sum, drift, tt.totalCents, maxDrift)
			}
		})
	}
}

func TestUpdatePlanPropagatesToParcelas(t *testing.T) {
	svc, repo, user := newInstallments(t)
	ctx := context.Background()

	plan, _, err := svc.CreatePlan(ctx, core.InstallmentPlan{
		UserID:              user.ID,
		Descricao:           "Notebook",
		ValorTotal:          core.Money{Cents: 120000},
		TotalParcelas:       3,
		Tipo:                core.Despesa,
		Categoria:           "equipamentos",
		DataPrimeiraParcela: core.NewDate(2024, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	plan.Descricao = "Notebook Dell"
	plan.ValorTotal = core.Money{Cents: 150000}
	plan.Categoria = "escritorio"
	updated, err := svc.UpdatePlan(ctx, plan)
	if err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if updated.ValorParcela.Cents != 50000 {
		t.Errorf("recomputed valor_parcela = %d, want 50000", updated.ValorParcela.Cents)
	}

	all, err := repo.ListTransactions(ctx, user.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ledger holds %d transactions, want 3", len(all))
	}
	for i, tx := range all {
		wantDescricao := fmt.Sprintf("Notebook Dell (%d/3)", i+1)
		if tx.Descricao != wantDescricao {
			t.Errorf("parcela descricao = %q, want %q", tx.Descricao, wantDescricao)
		}
		if tx.Valor.Cents != 50000 {
			t.Errorf("parcela valor = %d, want 50000", tx.Valor.Cents)
		}
		if tx.Categoria != "escritorio" {
			t.Errorf("parcela categoria = %q, want escritorio", tx.Categoria)
		}
	}
}

// The propagation rewrite only touches despesas; parcelas of a receita plan
// keep their old descricao after an edit.
func TestUpdatePlanReceitaNotRewritten(t *testing.T) {
	svc, repo, user := newInstallments(t)
	ctx := context.Background()

	plan, _, err := svc.CreatePlan(ctx, core.InstallmentPlan{
		UserID:              user.ID,
		Descricao:           "Contrato anual",
		ValorTotal:          core.Money{Cents: 240000},
		TotalParcelas:       4,
		Tipo:                core.Receita,
		Categoria:           "contratos",
		DataPrimeiraParcela: core.NewDate(2024, time.January, 15),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	plan.Descricao = "Contrato anual renovado"
	if _, err := svc.UpdatePlan(ctx, plan); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}

	all, err := repo.ListTransactions(ctx, user.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	for _, tx := range all {
		if tx.Descricao == "Contrato anual renovado (1/4)" {
			t.Error("receita parcela was rewritten; only despesas match the propagation rule")
		}
	}
}

func TestSetAtivaShortCircuitsRecompute(t *testing.T) {
	svc, repo, user := newInstallments(t)
	ctx := context.Background()

	plan, transactions, err := svc.CreatePlan(ctx, core.InstallmentPlan{
		UserID:              user.ID,
		Descricao:           "Notebook",
		ValorTotal:          core.Money{Cents: 120000},
		TotalParcelas:       3,
		Tipo:                core.Despesa,
		Categoria:           "equipamentos",
		DataPrimeiraParcela: core.NewDate(2024, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	if err := svc.SetAtiva(ctx, user.ID, plan.ID, false); err != nil {
		t.Fatalf("SetAtiva: %v", err)
	}

	got, err := svc.Get(ctx, user.ID, plan.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Ativa {
		t.Error("plan still active after toggle")
	}
	if got.ValorParcela.Cents != plan.ValorParcela.Cents {
		t.Errorf("toggle changed valor_parcela to %d", got.ValorParcela.Cents)
	}

	// Parcel transactions untouched by the toggle.
	for _, tx := range transactions {
		current, err := repo.GetTransaction(ctx, user.ID, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction: %v", err)
		}
		if current.Descricao != tx.Descricao || current.Valor.Cents != tx.Valor.Cents {
			t.Errorf("toggle rewrote parcela %+v", current)
		}
	}
}

func TestDeletePlanKeepsParcelas(t *testing.T) {
	svc, repo, user := newInstallments(t)
	ctx := context.Background()

	plan, transactions, err := svc.CreatePlan(ctx, core.InstallmentPlan{
		UserID:              user.ID,
		Descricao:           "Notebook",
		ValorTotal:          core.Money{Cents: 120000},
		TotalParcelas:       3,
		Tipo:                core.Despesa,
		Categoria:           "equipamentos",
		DataPrimeiraParcela: core.NewDate(2024, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	if err := svc.DeletePlan(ctx, user.ID, plan.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if _, err := svc.Get(ctx, user.ID, plan.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	for _, tx := range transactions {
		if _, err := repo.GetTransaction(ctx, user.ID, tx.ID); err != nil {
			t.Errorf("parcela gone after plan deletion: %v", err)
		}
	}
}

func TestInstallmentOwnershipIsolation(t *testing.T) {
	svc, repo, owner := newInstallments(t)
	ctx := context.Background()
	other := createTestUser(t, repo, "intruso@example.com")

	plan, _, err := svc.CreatePlan(ctx, core.InstallmentPlan{
		UserID:              owner.ID,
		Descricao:           "Notebook",
		ValorTotal:          core.Money{Cents: 120000},
		TotalParcelas:       3,
		Tipo:                core.Despesa,
		Categoria:           "equipamentos",
		DataPrimeiraParcela: core.NewDate(2024, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	if _, err := svc.Get(ctx, other.ID, plan.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get as other user = %v, want ErrNotFound", err)
	}

	stolen := plan
	stolen.UserID = other.ID
	if _, err := svc.UpdatePlan(ctx, stolen); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update as other user = %v, want ErrNotFound", err)
	}
	if err := svc.SetAtiva(ctx, other.ID, plan.ID, false); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetAtiva as other user = %v, want ErrNotFound", err)
	}
	if err := svc.DeletePlan(ctx, other.ID, plan.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete as other user = %v, want ErrNotFound", err)
	}
}
