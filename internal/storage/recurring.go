package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lavanderia/internal/core"
)

const recurringColumns = `id, user_id, descricao, valor_cents, tipo, categoria, dia_vencimento, ativa, proxima_geracao`

func (r *Repository) CreateRecurringDefinition(ctx context.Context, rd core.RecurringDefinition) (core.RecurringDefinition, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions (user_id, descricao, valor_cents, tipo, categoria, dia_vencimento, ativa, proxima_geracao)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.UserID, rd.Descricao, rd.Valor.Cents, string(rd.Tipo), rd.Categoria,
		rd.DiaVencimento, boolToInt(rd.Ativa), nullableDate(rd.ProximaGeracao))
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("create recurring definition: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("create recurring definition id: %w", err)
	}
	rd.ID = id
	return rd, nil
}

func (r *Repository) GetRecurringDefinition(ctx context.Context, userID, id int64) (core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_definitions WHERE id = ? AND user_id = ?`, id, userID)
	return scanRecurring(row)
}

// ListRecurringDefinitions returns the user's definitions; onlyActive limits
// to ativa = true (the generation set).
func (r *Repository) ListRecurringDefinitions(ctx context.Context, userID int64, onlyActive bool) ([]core.RecurringDefinition, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_definitions WHERE user_id = ?`
	if onlyActive {
		query += ` AND ativa = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring definitions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringDefinition
	for rows.Next() {
		rd, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateRecurringDefinition(ctx context.Context, rd core.RecurringDefinition) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions
		 SET descricao = ?, valor_cents = ?, tipo = ?, categoria = ?, dia_vencimento = ?, ativa = ?, proxima_geracao = ?
		 WHERE id = ? AND user_id = ?`,
		rd.Descricao, rd.Valor.Cents, string(rd.Tipo), rd.Categoria, rd.DiaVencimento,
		boolToInt(rd.Ativa), nullableDate(rd.ProximaGeracao), rd.ID, rd.UserID)
	if err != nil {
		return fmt.Errorf("update recurring definition: %w", translateError(err))
	}
	return requireAffected(res)
}

func (r *Repository) SetRecurringAtiva(ctx context.Context, userID, id int64, ativa bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET ativa = ? WHERE id = ? AND user_id = ?`,
		boolToInt(ativa), id, userID)
	if err != nil {
		return fmt.Errorf("set recurring ativa: %w", err)
	}
	return requireAffected(res)
}

// DeleteRecurringDefinition removes only the rule; transactions it generated
// stay in the ledger.
func (r *Repository) DeleteRecurringDefinition(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_definitions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring definition: %w", err)
	}
	return requireAffected(res)
}

// ListUserIDsWithActiveDefinitions feeds the recurring worker's sweep.
func (r *Repository) ListUserIDsWithActiveDefinitions(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM recurring_definitions WHERE ativa = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users with active definitions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRecurring(row rowScanner) (core.RecurringDefinition, error) {
	var (
		rd       core.RecurringDefinition
		tipo     string
		ativa    int
		proxGera sql.NullString
	)
	err := row.Scan(&rd.ID, &rd.UserID, &rd.Descricao, &rd.Valor.Cents, &tipo,
		&rd.Categoria, &rd.DiaVencimento, &ativa, &proxGera)
	if err != nil {
		return core.RecurringDefinition{}, translateError(err)
	}
	rd.Tipo = core.TransactionType(tipo)
	rd.Ativa = ativa != 0
	if proxGera.Valid {
		if d, err := core.ParseDate(proxGera.String); err == nil {
			rd.ProximaGeracao = d
		}
	}
	return rd, nil
}

func nullableDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
