package export

import (
	"context"

	"lavanderia/internal/core"
)

// RowAppender is the outbound port for the report sink: one ledger
// transaction becomes one appended row.
type RowAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
