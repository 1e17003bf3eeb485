package http

import (
	"fmt"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query(), s.reports)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.ledger.SearchTransactions(r.Context(), criteria)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(transactionList{Transactions: txs, Count: len(txs)}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := ParseTransaction(NewRequestBodyParser(r), s.reports.Location())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	saved, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldTransactionID, saved.ID,
		log.FieldTxType, saved.Type.String(),
		log.FieldCategory, saved.Category,
		log.FieldAmountCents, saved.Amount.Cents)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", saved.ID)).
		Body(saved).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	patch, err := ParseTransactionPatch(NewRequestBodyParser(r), s.reports.Location())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	saved, err := s.ledger.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	deleted, err := s.ledger.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if !deleted {
		NotFoundResponse(fmt.Sprintf("transaction %d not found", id)).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
