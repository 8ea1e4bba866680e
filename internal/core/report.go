package core

import "time"

// Aggregates rendered by the dashboard.

type CategoriaTotal struct {
	Categoria string
	Tipo      TransactionType
	Total     Money
}

type ServicoTotal struct {
	TipoServico string
	Total       Money
}

// MonthSummary totals one calendar month of the ledger for one user.
type MonthSummary struct {
	Ano          int
	Mes          time.Month
	Receitas     Money
	Despesas     Money
	Saldo        Money
	PorCategoria []CategoriaTotal
	PorServico   []ServicoTotal
}

// Projection is a forward-looking occurrence of a recurring definition.
// It is display-only: nothing is written until the month is generated.
type Projection struct {
	DefinitionID int64
	Descricao    string
	Valor        Money
	Tipo         TransactionType
	Categoria    string
	Data         Date
}
