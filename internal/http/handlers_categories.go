package http

import (
	"fmt"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var typ core.TxType
	if v := r.URL.Query().Get("type"); v != "" {
		parsed, err := core.ParseTxType(v)
		if err != nil {
			writeError(r.Context(), w, badRequest("type", err))
			return
		}
		typ = parsed
	}

	cats, err := s.ledger.ListCategories(r.Context(), typ)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewJSONResponse().Body(map[string]any{"categories": cats}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCategory(NewRequestBodyParser(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	saved, err := s.ledger.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/categories/%d", saved.ID)).
		Body(saved).
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	patch, err := ParseCategoryPatch(NewRequestBodyParser(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	saved, err := s.ledger.UpdateCategory(r.Context(), id, patch)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

// handleDeleteCategory answers 409 with the usage count while transactions
// still reference the category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	deleted, err := s.ledger.DeleteCategory(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if !deleted {
		NotFoundResponse(fmt.Sprintf("category %d not found", id)).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCategoryUsage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(sanitizeInput(r.URL.Query().Get("name")))
	if name == "" {
		writeError(r.Context(), w, badRequest("name", fmt.Errorf("required")))
		return
	}
	count, err := s.ledger.CategoryUsage(r.Context(), name)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"name": name, "count": count}).Write(w)
}
