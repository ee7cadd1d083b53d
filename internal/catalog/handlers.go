package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-gudang/internal/common"
	"github.com/noah-isme/backend-gudang/internal/pricing"
)

// Handler exposes price-rule management endpoints for staff.
type Handler struct {
	Rules    RuleStore
	Validate *validator.Validate
}

type ruleRequest struct {
	Keyword  string        `json:"keyword" validate:"required,min=2"`
	Amount   pricing.Money `json:"amount" validate:"gte=0"`
	Position int           `json:"position" validate:"gte=0"`
}

// ListRules handles GET /api/v1/price-rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.Rules == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	rules, err := h.Rules.ListRules(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rules == nil {
		rules = []PriceRule{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// CreateRule handles POST /api/v1/price-rules.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h.Rules == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	req, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	rule, err := h.Rules.CreateRule(r.Context(), req.Keyword, req.Amount, req.Position)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rule})
}

// UpdateRule handles PUT /api/v1/price-rules/{ruleID}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	if h.Rules == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid rule id", nil)
		return
	}
	req, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	rule, err := h.Rules.UpdateRule(r.Context(), PriceRule{ID: id, Keyword: req.Keyword, Amount: req.Amount, Position: req.Position})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

// DeleteRule handles DELETE /api/v1/price-rules/{ruleID}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if h.Rules == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid rule id", nil)
		return
	}
	if err := h.Rules.DeleteRule(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeRule(w http.ResponseWriter, r *http.Request) (ruleRequest, bool) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return req, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid price rule", map[string]any{"error": err.Error()})
			return req, false
		}
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRuleNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "price rule not found", nil)
	case errors.Is(err, ErrStoreUnavailable):
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "COLLABORATOR_FAILURE", "price rule store error", map[string]any{"error": err.Error()})
	}
}
