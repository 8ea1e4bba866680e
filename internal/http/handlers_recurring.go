package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"lavanderia/internal/core"
)

type recurringRequest struct {
	Descricao     string `json:"descricao"`
	Valor         string `json:"valor"`
	Tipo          string `json:"tipo"`
	Categoria     string `json:"categoria"`
	DiaVencimento int    `json:"dia_vencimento"`
}

type recurringResponse struct {
	ID             int64  `json:"id"`
	Descricao      string `json:"descricao"`
	Valor          string `json:"valor"`
	Tipo           string `json:"tipo"`
	Categoria      string `json:"categoria"`
	DiaVencimento  int    `json:"dia_vencimento"`
	Ativa          bool   `json:"ativa"`
	ProximaGeracao string `json:"proxima_geracao,omitempty"`
}

func toRecurringResponse(rd core.RecurringDefinition) recurringResponse {
	resp := recurringResponse{
		ID:            rd.ID,
		Descricao:     rd.Descricao,
		Valor:         rd.Valor.Decimal(),
		Tipo:          string(rd.Tipo),
		Categoria:     rd.Categoria,
		DiaVencimento: rd.DiaVencimento,
		Ativa:         rd.Ativa,
	}
	if !rd.ProximaGeracao.IsZero() {
		resp.ProximaGeracao = rd.ProximaGeracao.String()
	}
	return resp
}

func (req recurringRequest) toDomain(userID int64) (core.RecurringDefinition, error) {
	cents, err := core.ParseDecimalToCents(req.Valor)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	return core.RecurringDefinition{
		UserID:        userID,
		Descricao:     sanitizeInput(req.Descricao),
		Valor:         core.Money{Cents: cents},
		Tipo:          core.TransactionType(strings.ToLower(strings.TrimSpace(req.Tipo))),
		Categoria:     sanitizeInput(req.Categoria),
		DiaVencimento: req.DiaVencimento,
	}, nil
}

type createRecurringResponse struct {
	Recorrente recurringResponse    `json:"recorrente"`
	Transacao  *transactionResponse `json:"transacao,omitempty"`
}

func (s *Server) handleCreateRecorrente(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	rd, err := req.toDomain(identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, tx, err := s.recurrence.CreateDefinition(r.Context(), rd, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := createRecurringResponse{Recorrente: toRecurringResponse(created)}
	if tx != nil {
		t := toTransactionResponse(*tx)
		resp.Transacao = &t
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListRecorrentes(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	definitions, err := s.recurrence.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]recurringResponse, 0, len(definitions))
	for _, rd := range definitions {
		out = append(out, toRecurringResponse(rd))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRecorrente(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rd, err := s.recurrence.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(rd))
}

func (s *Server) handleUpdateRecorrente(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	rd, err := req.toDomain(identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rd.ID = id

	current, err := s.recurrence.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rd.Ativa = current.Ativa

	updated, err := s.recurrence.UpdateDefinition(r.Context(), rd, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(updated))
}

type ativaRequest struct {
	Ativa *bool `json:"ativa"`
}

func (s *Server) handlePatchRecorrente(w http.ResponseWriter, r *http.Request) {
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

	if err := s.recurrence.SetAtiva(r.Context(), identity.UserID, id, *req.Ativa); err != nil {
		writeServiceError(w, r, err)
		return
	}

	rd, err := s.recurrence.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(rd))
}

func (s *Server) handleDeleteRecorrente(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := s.recurrence.DeleteDefinition(r.Context(), identity.UserID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gerarResponse struct {
	Criadas    int                   `json:"criadas"`
	Transacoes []transactionResponse `json:"transacoes"`
}

func (s *Server) handleGerarMes(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	result, err := s.recurrence.GenerateForMonth(r.Context(), identity.UserID, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gerarResponse{
		Criadas:    result.Criadas,
		Transacoes: toTransactionResponses(result.Transacoes),
	})
}

type projectionResponse struct {
	RecorrenteID int64  `json:"recorrente_id"`
	Descricao    string `json:"descricao"`
	Valor        string `json:"valor"`
	Tipo         string `json:"tipo"`
	Categoria    string `json:"categoria"`
	Data         string `json:"data"`
}

func (s *Server) handleProjecoes(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	meses := 3
	if v := strings.TrimSpace(r.URL.Query().Get("meses")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 24 {
			writeError(w, http.StatusBadRequest, "meses must be between 1 and 24")
			return
		}
		meses = n
	}

	projections, err := s.recurrence.Projections(r.Context(), identity.UserID, meses, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]projectionResponse, 0, len(projections))
	for _, p := range projections {
		out = append(out, projectionResponse{
			RecorrenteID: p.DefinitionID,
			Descricao:    p.Descricao,
			Valor:        p.Valor.Decimal(),
			Tipo:         string(p.Tipo),
			Categoria:    p.Categoria,
			Data:         p.Data.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
