package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Receita TransactionType = "receita"
	Despesa TransactionType = "despesa"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// MinParcelas is the smallest parcel count an installment plan may carry.
const MinParcelas = 2

type (
	TransactionType string

	Role string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID        int64
		Nome      string
		Email     string
		SenhaHash string
		Role      Role
		CriadoEm  time.Time
	}

	// Transaction is a single ledger entry. Rows are created by direct user
	// action, by the recurrence engine, or by the installment engine; the
	// originating rule is not stored, matching is structural (see the
	// recurrence and installment services).
	Transaction struct {
		ID          int64
		UserID      int64
		Data        Date
		Descricao   string
		Valor       Money
		Tipo        TransactionType
		Categoria   string
		TipoServico string // optional service tag (lavagem, passadoria, ...)
		Pago        bool
	}

	// RecurringDefinition spawns one Transaction per calendar month on its
	// due day. ProximaGeracao is advisory display data and is never consulted
	// when generating.
	RecurringDefinition struct {
		ID             int64
		UserID         int64
		Descricao      string
		Valor          Money
		Tipo           TransactionType
		Categoria      string
		DiaVencimento  int
		Ativa          bool
		ProximaGeracao Date
	}

	// InstallmentPlan splits a total into TotalParcelas dated transactions,
	// created eagerly when the plan is created. ValorParcela is recomputed
	// whenever the total or the count changes; the last parcel is not
	// adjusted for the rounding remainder.
	InstallmentPlan struct {
		ID                  int64
		UserID              int64
		Descricao           string
		ValorTotal          Money
		TotalParcelas       int
		ValorParcela        Money
		Tipo                TransactionType
		Categoria           string
		DataPrimeiraParcela Date
		Ativa               bool
	}
)

// ValidationError marks malformed or out-of-range input. Callers surface it
// as a 4xx response and never retry it.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNotFound marks a row that does not exist for the calling user. Lookups
// scoped to the wrong user report this, never the other user's data.
var ErrNotFound = errors.New("not found")

var (
	ErrInvalidAmount    = NewValidationError("valor must be greater than zero")
	ErrEmptyDescription = NewValidationError("descricao cannot be empty")
	ErrEmptyCategoria   = NewValidationError("categoria cannot be empty")
	ErrInvalidTipo      = NewValidationError("tipo must be receita or despesa")
	ErrInvalidDueDay    = NewValidationError("dia_vencimento must be between 1 and 31")
	ErrInvalidParcelas  = NewValidationError("total_parcelas must be at least 2")
	ErrInvalidDate      = NewValidationError("invalid date")
)

func (t TransactionType) Valid() bool {
	return t == Receita || t == Despesa
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// NewDate creates a Date from year, month, day (UTC, no time of day).
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Data.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Descricao)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Descricao) > 200 {
		return NewValidationError("descricao too long (max 200 characters)")
	}
	if err := t.Valor.Validate(); err != nil {
		return err
	}
	if !t.Tipo.Valid() {
		return ErrInvalidTipo
	}
	if strings.TrimSpace(t.Categoria) == "" {
		return ErrEmptyCategoria
	}
	return nil
}

func (rd RecurringDefinition) Validate() error {
	if len(strings.TrimSpace(rd.Descricao)) == 0 {
		return ErrEmptyDescription
	}
	if len(rd.Descricao) > 200 {
		return NewValidationError("descricao too long (max 200 characters)")
	}
	if err := rd.Valor.Validate(); err != nil {
		return err
	}
	if !rd.Tipo.Valid() {
		return ErrInvalidTipo
	}
	if strings.TrimSpace(rd.Categoria) == "" {
		return ErrEmptyCategoria
	}
	if rd.DiaVencimento < 1 || rd.DiaVencimento > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func (p InstallmentPlan) Validate() error {
	if len(strings.TrimSpace(p.Descricao)) == 0 {
		return ErrEmptyDescription
	}
	if len(p.Descricao) > 200 {
		return NewValidationError("descricao too long (max 200 characters)")
	}
	if err := p.ValorTotal.Validate(); err != nil {
		return err
	}
	if p.TotalParcelas < MinParcelas {
		return ErrInvalidParcelas
	}
	if !p.Tipo.Valid() {
		return ErrInvalidTipo
	}
	if strings.TrimSpace(p.Categoria) == "" {
		return ErrEmptyCategoria
	}
	return p.DataPrimeiraParcela.Validate()
}
