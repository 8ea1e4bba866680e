package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lavanderia/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Ano         int
	Mes         time.Month
	Tipo        core.TransactionType
	Categoria   string
	TipoServico string
	Pago        *bool
}

const transactionColumns = `id, user_id, descricao, valor_cents, data, tipo, categoria, tipo_servico, pago`

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, descricao, valor_cents, data, tipo, categoria, tipo_servico, pago)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Descricao, t.Valor.Cents, t.Data.String(), string(t.Tipo),
		t.Categoria, nullableString(t.TipoServico), boolToInt(t.Pago))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction id: %w", err)
	}
	t.ID = id
	return t, nil
}

// CreateTransactionUnlessExists inserts the transaction only when no other
// transaction with the exact same description already sits in the same
// calendar month for the user. Check and insert share one SQL transaction so
// concurrent generators serialize on the database writer.
func (r *Repository) CreateTransactionUnlessExists(ctx context.Context, t core.Transaction) (core.Transaction, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	monthKey := fmt.Sprintf("%04d-%02d", t.Data.Year(), int(t.Data.Month()))
	var count int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE user_id = ? AND descricao = ? AND strftime('%Y-%m', data) = ?`,
		t.UserID, t.Descricao, monthKey).Scan(&count)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("check existing transaction: %w", err)
	}
	if count > 0 {
		return core.Transaction{}, false, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, descricao, valor_cents, data, tipo, categoria, tipo_servico, pago)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Descricao, t.Valor.Cents, t.Data.String(), string(t.Tipo),
		t.Categoria, nullableString(t.TipoServico), boolToInt(t.Pago))
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("insert transaction: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("insert transaction id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, false, fmt.Errorf("commit: %w", err)
	}
	t.ID = id
	return t, true, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}

	if f.Ano != 0 && f.Mes != 0 {
		query += ` AND strftime('%Y-%m', data) = ?`
		args = append(args, fmt.Sprintf("%04d-%02d", f.Ano, int(f.Mes)))
	} else if f.Ano != 0 {
		query += ` AND strftime('%Y', data) = ?`
		args = append(args, fmt.Sprintf("%04d", f.Ano))
	}
	if f.Tipo != "" {
		query += ` AND tipo = ?`
		args = append(args, string(f.Tipo))
	}
	if f.Categoria != "" {
		query += ` AND categoria = ?`
		args = append(args, f.Categoria)
	}
	if f.TipoServico != "" {
		query += ` AND tipo_servico = ?`
		args = append(args, f.TipoServico)
	}
	if f.Pago != nil {
		query += ` AND pago = ?`
		args = append(args, boolToInt(*f.Pago))
	}
	query += ` ORDER BY data, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET descricao = ?, valor_cents = ?, data = ?, tipo = ?, categoria = ?, tipo_servico = ?, pago = ?
		 WHERE id = ? AND user_id = ?`,
		t.Descricao, t.Valor.Cents, t.Data.String(), string(t.Tipo), t.Categoria,
		nullableString(t.TipoServico), boolToInt(t.Pago), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", translateError(err))
	}
	return requireAffected(res)
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

// RewriteParcelaTransactions propagates an installment plan edit to its
// already-created parcel rows. The match is structural: despesa rows whose
// description starts with the plan's previous description get the old prefix
// substring-replaced and valor/categoria rewritten. Independently renamed
// rows fall out of the match; that fragility is inherited behavior.
func (r *Repository) RewriteParcelaTransactions(ctx context.Context, userID int64, oldDescricao, newDescricao string, valor core.Money, categoria string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET descricao = REPLACE(descricao, ?, ?), valor_cents = ?, categoria = ?
		 WHERE user_id = ? AND tipo = 'despesa' AND descricao LIKE ? ESCAPE '\'`,
		oldDescricao, newDescricao, valor.Cents, categoria, userID, escapeLikePrefix(oldDescricao)+"%")
	if err != nil {
		return 0, fmt.Errorf("rewrite parcela transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rewrite parcela rows affected: %w", err)
	}
	return n, nil
}

// MonthSummary aggregates one calendar month for the dashboard.
func (r *Repository) MonthSummary(ctx context.Context, userID int64, ano int, mes time.Month) (core.MonthSummary, error) {
	summary := core.MonthSummary{Ano: ano, Mes: mes}
	monthKey := fmt.Sprintf("%04d-%02d", ano, int(mes))

	rows, err := r.db.QueryContext(ctx,
		`SELECT tipo, COALESCE(SUM(valor_cents), 0) FROM transactions
		 WHERE user_id = ? AND strftime('%Y-%m', data) = ? GROUP BY tipo`,
		userID, monthKey)
	if err != nil {
		return summary, fmt.Errorf("month totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tipo string
		var total int64
		if err := rows.Scan(&tipo, &total); err != nil {
			return summary, fmt.Errorf("scan month total: %w", err)
		}
		switch core.TransactionType(tipo) {
		case core.Receita:
			summary.Receitas = core.Money{Cents: total}
		case core.Despesa:
			summary.Despesas = core.Money{Cents: total}
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	summary.Saldo = core.Money{Cents: summary.Receitas.Cents - summary.Despesas.Cents}

	catRows, err := r.db.QueryContext(ctx,
		`SELECT categoria, tipo, SUM(valor_cents) FROM transactions
		 WHERE user_id = ? AND strftime('%Y-%m', data) = ?
		 GROUP BY categoria, tipo ORDER BY SUM(valor_cents) DESC`,
		userID, monthKey)
	if err != nil {
		return summary, fmt.Errorf("category totals: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var ct core.CategoriaTotal
		var tipo string
		var total int64
		if err := catRows.Scan(&ct.Categoria, &tipo, &total); err != nil {
			return summary, fmt.Errorf("scan category total: %w", err)
		}
		ct.Tipo = core.TransactionType(tipo)
		ct.Total = core.Money{Cents: total}
		summary.PorCategoria = append(summary.PorCategoria, ct)
	}
	if err := catRows.Err(); err != nil {
		return summary, err
	}

	svcRows, err := r.db.QueryContext(ctx,
		`SELECT tipo_servico, SUM(valor_cents) FROM transactions
		 WHERE user_id = ? AND strftime('%Y-%m', data) = ? AND tipo_servico IS NOT NULL
		 GROUP BY tipo_servico ORDER BY SUM(valor_cents) DESC`,
		userID, monthKey)
	if err != nil {
		return summary, fmt.Errorf("service totals: %w", err)
	}
	defer svcRows.Close()
	for svcRows.Next() {
		var st core.ServicoTotal
		var total int64
		if err := svcRows.Scan(&st.TipoServico, &total); err != nil {
			return summary, fmt.Errorf("scan service total: %w", err)
		}
		st.Total = core.Money{Cents: total}
		summary.PorServico = append(summary.PorServico, st)
	}
	return summary, svcRows.Err()
}

// escapeLikePrefix escapes LIKE metacharacters so a descricao containing
// % or _ matches literally.
func escapeLikePrefix(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t           core.Transaction
		data        string
		tipo        string
		tipoServico sql.NullString
		pago        int
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Descricao, &t.Valor.Cents, &data, &tipo, &t.Categoria, &tipoServico, &pago)
	if err != nil {
		return core.Transaction{}, translateError(err)
	}
	d, err := core.ParseDate(data)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", data, err)
	}
	t.Data = d
	t.Tipo = core.TransactionType(tipo)
	t.TipoServico = tipoServico.String
	t.Pago = pago != 0
	return t, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
