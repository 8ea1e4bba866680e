package http

import (
	"net/http"
	"strings"

	"lavanderia/internal/auth"
	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

type transactionRequest struct {
	Data        string `json:"data"`
	Descricao   string `json:"descricao"`
	Valor       string `json:"valor"`
	Tipo        string `json:"tipo"`
	Categoria   string `json:"categoria"`
	TipoServico string `json:"tipo_servico,omitempty"`
	Pago        bool   `json:"pago,omitempty"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Data        string `json:"data"`
	Descricao   string `json:"descricao"`
	Valor       string `json:"valor"`
	Tipo        string `json:"tipo"`
	Categoria   string `json:"categoria"`
	TipoServico string `json:"tipo_servico,omitempty"`
	Pago        bool   `json:"pago"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Data:        t.Data.String(),
		Descricao:   t.Descricao,
		Valor:       t.Valor.Decimal(),
		Tipo:        string(t.Tipo),
		Categoria:   t.Categoria,
		TipoServico: t.TipoServico,
		Pago:        t.Pago,
	}
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func (req transactionRequest) toDomain(userID int64) (core.Transaction, error) {
	data, err := core.ParseDate(req.Data)
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(req.Valor)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:      userID,
		Data:        data,
		Descricao:   sanitizeInput(req.Descricao),
		Valor:       core.Money{Cents: cents},
		Tipo:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Tipo))),
		Categoria:   sanitizeInput(req.Categoria),
		TipoServico: sanitizeInput(req.TipoServico),
		Pago:        req.Pago,
	}, nil
}

func identityOrFail(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
	}
	return identity, ok
}

func (s *Server) handleCreateTransacao(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	tx, err := req.toDomain(identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := s.ledger.Record(r.Context(), tx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransacoes(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	filter := storage.TransactionFilter{
		Tipo:        core.TransactionType(r.URL.Query().Get("tipo")),
		Categoria:   r.URL.Query().Get("categoria"),
		TipoServico: r.URL.Query().Get("tipo_servico"),
	}
	if r.URL.Query().Get("ano") != "" || r.URL.Query().Get("mes") != "" {
		ano, mes, err := parseAnoMes(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		filter.Ano = ano
		filter.Mes = mes
	}
	if v := r.URL.Query().Get("pago"); v != "" {
		pago := v == "true" || v == "1"
		filter.Pago = &pago
	}

	transactions, err := s.ledger.List(r.Context(), identity.UserID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(transactions))
}

func (s *Server) handleGetTransacao(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tx, err := s.ledger.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransacao(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	tx, err := req.toDomain(identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	tx.ID = id

	updated, err := s.ledger.Update(r.Context(), tx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransacao(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := s.ledger.Delete(r.Context(), identity.UserID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoriaTotalResponse struct {
	Categoria string `json:"categoria"`
	Tipo      string `json:"tipo"`
	Total     string `json:"total"`
}

type servicoTotalResponse struct {
	TipoServico string `json:"tipo_servico"`
	Total       string `json:"total"`
}

type dashboardResponse struct {
	Ano          int                      `json:"ano"`
	Mes          int                      `json:"mes"`
	Receitas     string                   `json:"receitas"`
	Despesas     string                   `json:"despesas"`
	Saldo        string                   `json:"saldo"`
	PorCategoria []categoriaTotalResponse `json:"por_categoria"`
	PorServico   []servicoTotalResponse   `json:"por_servico"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	ano, mes, err := parseAnoMes(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	summary, err := s.ledger.Dashboard(r.Context(), identity.UserID, ano, mes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := dashboardResponse{
		Ano:          summary.Ano,
		Mes:          int(summary.Mes),
		Receitas:     summary.Receitas.Decimal(),
		Despesas:     summary.Despesas.Decimal(),
		Saldo:        summary.Saldo.Decimal(),
		PorCategoria: []categoriaTotalResponse{},
		PorServico:   []servicoTotalResponse{},
	}
	for _, ct := range summary.PorCategoria {
		resp.PorCategoria = append(resp.PorCategoria, categoriaTotalResponse{
			Categoria: ct.Categoria,
			Tipo:      string(ct.Tipo),
			Total:     ct.Total.Decimal(),
		})
	}
	for _, st := range summary.PorServico {
		resp.PorServico = append(resp.PorServico, servicoTotalResponse{
			TipoServico: st.TipoServico,
			Total:       st.Total.Decimal(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
