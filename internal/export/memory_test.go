package export

import (
	"context"
	"testing"
	"time"

	"lavanderia/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	store := NewMemoryStore()

	ref, err := store.Append(context.Background(), core.Transaction{
		UserID:    1,
		Data:      core.NewDate(2024, time.May, 3),
		Descricao: "Lavagem completa",
		Valor:     core.Money{Cents: 10000},
		Tipo:      core.Receita,
		Categoria: "servicos",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows := store.Rows()
	if len(rows) != 1 || rows[0].Descricao != "Lavagem completa" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Append(context.Background(), core.Transaction{
		UserID:    1,
		Data:      core.NewDate(2024, time.May, 3),
		Descricao: "Lavagem",
		Valor:     core.Money{Cents: 0},
		Tipo:      core.Receita,
		Categoria: "servicos",
	})
	if !core.IsValidation(err) {
		t.Errorf("got %v, want validation error", err)
	}
	if len(store.Rows()) != 0 {
		t.Error("invalid row stored")
	}
}
