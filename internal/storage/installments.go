package storage

import (
	"context"
	"fmt"

	"lavanderia/internal/core"
)

const installmentColumns = `id, user_id, descricao, valor_total_cents, total_parcelas, valor_parcela_cents, tipo, categoria, data_primeira_parcela, ativa`

func (r *Repository) CreateInstallmentPlan(ctx context.Context, p core.InstallmentPlan) (core.InstallmentPlan, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO installment_plans (user_id, descricao, valor_total_cents, total_parcelas, valor_parcela_cents, tipo, categoria, data_primeira_parcela, ativa)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Descricao, p.ValorTotal.Cents, p.TotalParcelas, p.ValorParcela.Cents,
		string(p.Tipo), p.Categoria, p.DataPrimeiraParcela.String(), boolToInt(p.Ativa))
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("create installment plan: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("create installment plan id: %w", err)
	}
	p.ID = id
	return p, nil
}

func (r *Repository) GetInstallmentPlan(ctx context.Context, userID, id int64) (core.InstallmentPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installment_plans WHERE id = ? AND user_id = ?`, id, userID)
	return scanInstallment(row)
}

func (r *Repository) ListInstallmentPlans(ctx context.Context, userID int64) ([]core.InstallmentPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installment_plans WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list installment plans: %w", err)
	}
	defer rows.Close()

	var out []core.InstallmentPlan
	for rows.Next() {
		p, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateInstallmentPlan(ctx context.Context, p core.InstallmentPlan) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE installment_plans
		 SET descricao = ?, valor_total_cents = ?, total_parcelas = ?, valor_parcela_cents = ?, tipo = ?, categoria = ?, data_primeira_parcela = ?, ativa = ?
		 WHERE id = ? AND user_id = ?`,
		p.Descricao, p.ValorTotal.Cents, p.TotalParcelas, p.ValorParcela.Cents, string(p.Tipo),
		p.Categoria, p.DataPrimeiraParcela.String(), boolToInt(p.Ativa), p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("update installment plan: %w", translateError(err))
	}
	return requireAffected(res)
}

func (r *Repository) SetInstallmentAtiva(ctx context.Context, userID, id int64, ativa bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE installment_plans SET ativa = ? WHERE id = ? AND user_id = ?`,
		boolToInt(ativa), id, userID)
	if err != nil {
		return fmt.Errorf("set installment ativa: %w", err)
	}
	return requireAffected(res)
}

// DeleteInstallmentPlan removes only the plan; parcel transactions already
// created stay in the ledger.
func (r *Repository) DeleteInstallmentPlan(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM installment_plans WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete installment plan: %w", err)
	}
	return requireAffected(res)
}

func scanInstallment(row rowScanner) (core.InstallmentPlan, error) {
	var (
		p     core.InstallmentPlan
		tipo  string
		data  string
		ativa int
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Descricao, &p.ValorTotal.Cents, &p.TotalParcelas,
		&p.ValorParcela.Cents, &tipo, &p.Categoria, &data, &ativa)
	if err != nil {
		return core.InstallmentPlan{}, translateError(err)
	}
	d, err := core.ParseDate(data)
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("parse first parcela date %q: %w", data, err)
	}
	p.DataPrimeiraParcela = d
	p.Tipo = core.TransactionType(tipo)
	p.Ativa = ativa != 0
	return p, nil
}
