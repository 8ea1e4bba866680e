package http

import (
	"net/http"
	"strings"

	"lavanderia/internal/core"
)

type installmentRequest struct {
	Descricao           string `json:"descricao"`
	ValorTotal          string `json:"valor_total"`
	TotalParcelas       int    `json:"total_parcelas"`
	Tipo                string `json:"tipo"`
	Categoria           string `json:"categoria"`
	DataPrimeiraParcela string `json:"data_primeira_parcela"`
}

type installmentResponse struct {
	ID                  int64  `json:"id"`
	Descricao           string `json:"descricao"`
	ValorTotal          string `json:"valor_total"`
	TotalParcelas       int    `json:"total_parcelas"`
	ValorParcela        string `json:"valor_parcela"`
	Tipo                string `json:"tipo"`
	Categoria           string `json:"categoria"`
	DataPrimeiraParcela string `json:"data_primeira_parcela"`
	Ativa               bool   `json:"ativa"`
}

func toInstallmentResponse(p core.InstallmentPlan) installmentResponse {
	return installmentResponse{
		ID:                  p.ID,
		Descricao:           p.Descricao,
		ValorTotal:          p.ValorTotal.Decimal(),
		TotalParcelas:       p.TotalParcelas,
		ValorParcela:        p.ValorParcela.Decimal(),
		Tipo:                string(p.Tipo),
		Categoria:           p.Categoria,
		DataPrimeiraParcela: p.DataPrimeiraParcela.String(),
		Ativa:               p.Ativa,
	}
}

func (req installmentRequest) toDomain(userID int64) (core.InstallmentPlan, error) {
	cents, err := core.ParseDecimalToCents(req.ValorTotal)
	if err != nil {
		return core.InstallmentPlan{}, err
	}
	data, err := core.ParseDate(req.DataPrimeiraParcela)
	if err != nil {
		return core.InstallmentPlan{}, err
	}
	return core.InstallmentPlan{
		UserID:              userID,
		Descricao:           sanitizeInput(req.Descricao),
		ValorTotal:          core.Money{Cents: cents},
		TotalParcelas:       req.TotalParcelas,
		Tipo:                core.TransactionType(strings.ToLower(strings.TrimSpace(req.Tipo))),
		Categoria:           sanitizeInput(req.Categoria),
		DataPrimeiraParcela: data,
	}, nil
}

type createInstallmentResponse struct {
	Parcelada  installmentResponse   `json:"parcelada"`
	Transacoes []transactionResponse `json:"transacoes"`
}

func (s *Server) handleCreateParcelada(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	var req installmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	plan, err := req.toDomain(identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, transactions, err := s.installments.CreatePlan(r.Context(), plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createInstallmentResponse{
		Parcelada:  toInstallmentResponse(created),
		Transacoes: toTransactionResponses(transactions),
	})
}

func (s *Server) handleListParceladas(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	plans, err := s.installments.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]installmentResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toInstallmentResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetParcelada(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	plan, err := s.installments.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse(plan))
}

func (s *Server) handleUpdateParcelada(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req installmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	plan, err := req.toDomain(identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	plan.ID = id

	current, err := s.installments.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	plan.Ativa = current.Ativa

	updated, err := s.installments.UpdatePlan(r.Context(), plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse(updated))
}

// PATCH toggles only the ativa flag, skipping the recompute and rewrite path.
func (s *Server) handlePatchParcelada(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req ativaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Ativa == nil {
		writeError(w, http.StatusBadRequest, "ativa is required")
		return
	}

	if err := s.installments.SetAtiva(r.Context(), identity.UserID, id, *req.Ativa); err != nil {
		writeServiceError(w, r, err)
		return
	}

	plan, err := s.installments.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse(plan))
}

func (s *Server) handleDeleteParcelada(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := s.installments.DeletePlan(r.Context(), identity.UserID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
