package services

import (
	"context"
	"fmt"
	"log/slog"

	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

// InstallmentService splits a total into N dated parcel transactions, created
// eagerly when the plan is created. Parcels carry a " (i/N)" descricao suffix
// that later edits rely on for matching; there is no stored link from parcel
// back to plan.
type InstallmentService struct {
	repo   *storage.Repository
	ledger *LedgerService
}

func NewInstallmentService(repo *storage.Repository, ledger *LedgerService) *InstallmentService {
	return &InstallmentService{
		repo:   repo,
		ledger: ledger,
	}
}

// CreatePlan stores the plan and immediately creates all parcel transactions,
// one per month starting at the first-parcel date with the day of month held
// and clamped. The per-parcel amount is the rounded quotient; the last parcel
// is not adjusted, so the parcels may sum to slightly off the total.
func (s *InstallmentService) CreatePlan(ctx context.Context, p core.InstallmentPlan) (core.InstallmentPlan, []core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.InstallmentPlan{}, nil, err
	}

	p.Ativa = true
	p.ValorParcela = core.SplitParcela(p.ValorTotal, p.TotalParcelas)

	plan, err := s.repo.CreateInstallmentPlan(ctx, p)
	if err != nil {
		return core.InstallmentPlan{}, nil, fmt.Errorf("create plan: %w", err)
	}

	transactions := make([]core.Transaction, 0, plan.TotalParcelas)
	for i := 1; i <= plan.TotalParcelas; i++ {
		tx := core.Transaction{
			UserID:    plan.UserID,
			Data:      core.AddMonthsClamped(plan.DataPrimeiraParcela, i-1),
			Descricao: parcelaDescricao(plan.Descricao, i, plan.TotalParcelas),
			Valor:     plan.ValorParcela,
			Tipo:      plan.Tipo,
			Categoria: plan.Categoria,
		}

		created, err := s.ledger.Record(ctx, tx)
		if err != nil {
			return core.InstallmentPlan{}, transactions, fmt.Errorf("create parcela %d/%d: %w", i, plan.TotalParcelas, err)
		}
		transactions = append(transactions, created)
	}

	slog.InfoContext(ctx, "Created installment plan",
		"plan_id", plan.ID,
		"user_id", plan.UserID,
		"parcelas", plan.TotalParcelas,
		"valor_parcela_cents", plan.ValorParcela.Cents)

	return plan, transactions, nil
}

// UpdatePlan recomputes the per-parcel amount and propagates the edit to the
// already-created parcel transactions: every despesa whose descricao starts
// with the plan's old descricao gets the old descricao substring-replaced by
// the new one and its valor and categoria rewritten. The rewrite is blunt; a
// parcel renamed by hand no longer matches and is left as it is.
func (s *InstallmentService) UpdatePlan(ctx context.Context, p core.InstallmentPlan) (core.InstallmentPlan, error) {
	if err := p.Validate(); err != nil {
		return core.InstallmentPlan{}, err
	}

	previous, err := s.repo.GetInstallmentPlan(ctx, p.UserID, p.ID)
	if err != nil {
		return core.InstallmentPlan{}, err
	}

	p.ValorParcela = core.SplitParcela(p.ValorTotal, p.TotalParcelas)

	if err := s.repo.UpdateInstallmentPlan(ctx, p); err != nil {
		return core.InstallmentPlan{}, err
	}

	rewritten, err := s.repo.RewriteParcelaTransactions(ctx, p.UserID, previous.Descricao, p.Descricao, p.ValorParcela, p.Categoria)
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("propagate plan update: %w", err)
	}
	if rewritten > 0 {
		s.ledger.InvalidateUser(p.UserID)
	}

	slog.InfoContext(ctx, "Updated installment plan",
		"plan_id", p.ID,
		"user_id", p.UserID,
		"rewritten_transactions", rewritten)

	return p, nil
}

// SetAtiva toggles only the active flag, short-circuiting the recompute and
// rewrite path entirely.
func (s *InstallmentService) SetAtiva(ctx context.Context, userID, id int64, ativa bool) error {
	return s.repo.SetInstallmentAtiva(ctx, userID, id, ativa)
}

func (s *InstallmentService) Get(ctx context.Context, userID, id int64) (core.InstallmentPlan, error) {
	return s.repo.GetInstallmentPlan(ctx, userID, id)
}

func (s *InstallmentService) List(ctx context.Context, userID int64) ([]core.InstallmentPlan, error) {
	return s.repo.ListInstallmentPlans(ctx, userID)
}

// DeletePlan removes the plan. Parcel transactions already in the ledger
// stay there.
func (s *InstallmentService) DeletePlan(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteInstallmentPlan(ctx, userID, id)
}

func parcelaDescricao(descricao string, i, total int) string {
	return fmt.Sprintf("%s (%d/%d)", descricao, i, total)
}
