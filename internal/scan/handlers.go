package scan

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-gudang/internal/common"
	"github.com/noah-isme/backend-gudang/internal/crm"
	"github.com/noah-isme/backend-gudang/internal/obs"
	"github.com/noah-isme/backend-gudang/internal/pricing"
)

// Handler exposes the scan-session operations over HTTP. Each request loads
// the session snapshot, applies exactly one state-machine operation, persists
// the snapshot when it mutated, and relays the typed result.
type Handler struct {
	Svc      *Service
	Sessions *Store
	Validate *validator.Validate
}

type trackingRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required"`
}

type supplyRequest struct {
	Code         string `json:"code" validate:"required"`
	Flaw         string `json:"flaw"`
	SerialNumber string `json:"serialNumber"`
	Quantity     int    `json:"quantity" validate:"gte=1"`
}

type machineRequest struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code"`
	Flaw         string `json:"flaw"`
	SerialNumber string `json:"serialNumber" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=1"`
}

type manualRefRequest struct {
	Ref string `json:"ref" validate:"required"`
}

type newProductRequest struct {
	Description  string `json:"description" validate:"required"`
	Size         string `json:"size"`
	Manufacturer string `json:"manufacturer" validate:"required"`
	Price        *int64 `json:"price" validate:"omitempty,gte=0"`
	ManualRef    string `json:"manualRef"`
	Quantity     int    `json:"quantity" validate:"omitempty,gte=1"`
}

// Tracking handles POST /api/v1/scan/{sessionID}/tracking.
func (h *Handler) Tracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, "tracking", func(sess *Session) (Result, error) {
		return h.Svc.BindDeal(r.Context(), sess, req.TrackingNumber)
	})
}

// Supply handles POST /api/v1/scan/{sessionID}/sku.
func (h *Handler) Supply(w http.ResponseWriter, r *http.Request) {
	var req supplyRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, "sku", func(sess *Session) (Result, error) {
		return h.Svc.AddSupplyEntry(r.Context(), sess, SupplyInput{
			Code:         req.Code,
			Flaw:         pricing.Flaw(req.Flaw),
			SerialNumber: req.SerialNumber,
			Quantity:     req.Quantity,
		})
	})
}

// Machine handles POST /api/v1/scan/{sessionID}/machine.
func (h *Handler) Machine(w http.ResponseWriter, r *http.Request) {
	var req machineRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, "machine", func(sess *Session) (Result, error) {
		return h.Svc.AddMachineEntry(r.Context(), sess, MachineInput{
			Name:         req.Name,
			Code:         req.Code,
			Flaw:         pricing.Flaw(req.Flaw),
			SerialNumber: req.SerialNumber,
			Quantity:     req.Quantity,
		})
	})
}

// ManualRef handles POST /api/v1/scan/{sessionID}/manual-ref.
func (h *Handler) ManualRef(w http.ResponseWriter, r *http.Request) {
	var req manualRefRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, "manual_ref", func(sess *Session) (Result, error) {
		return h.Svc.SubmitManualReference(r.Context(), sess, req.Ref)
	})
}

// NewProduct handles POST /api/v1/scan/{sessionID}/new-product.
func (h *Handler) NewProduct(w http.ResponseWriter, r *http.Request) {
	var req newProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, "new_product", func(sess *Session) (Result, error) {
		var price *pricing.Money
		if req.Price != nil {
			v := pricing.Money(*req.Price)
			price = &v
		}
		return h.Svc.RegisterNewProduct(r.Context(), sess, NewProductInput{
			Description:  req.Description,
			Size:         req.Size,
			Manufacturer: req.Manufacturer,
			Price:        price,
			ManualRef:    req.ManualRef,
			Quantity:     req.Quantity,
		})
	})
}

// Undo handles POST /api/v1/scan/{sessionID}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "undo", func(sess *Session) (Result, error) {
		return h.Svc.Undo(r.Context(), sess)
	})
}

// Finish handles POST /api/v1/scan/{sessionID}/finish.
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "finish", func(sess *Session) (Result, error) {
		return h.Svc.Finish(r.Context(), sess)
	})
}

// View handles GET /api/v1/scan/{sessionID}.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "COLLABORATOR_FAILURE", "session store error", map[string]any{"error": err.Error()})
		return
	}
	entries := sess.Entries
	if entries == nil {
		entries = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"dealId":  sess.DealID,
		"entries": entries,
		"pending": sess.Pending,
		"total":   sess.Total(),
	}})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, operation string, op func(*Session) (Result, error)) {
	if h.Svc == nil || h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "scan service not configured", nil)
		return
	}
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		obs.CountScanOperation(operation, "store_error")
		common.JSONError(w, http.StatusBadGateway, "COLLABORATOR_FAILURE", "session store error", map[string]any{"error": err.Error()})
		return
	}

	result, opErr := op(&sess)

	// The kept-entry trade-off: a side-effect failure after the entry was
	// appended still persists the snapshot, because the session is the
	// source of truth for the batch total.
	if result.Mutated {
		if saveErr := h.Sessions.Set(r.Context(), sessionID, sess); saveErr != nil {
			obs.CountScanOperation(operation, "store_error")
			common.JSONError(w, http.StatusBadGateway, "COLLABORATOR_FAILURE", "session save failed", map[string]any{"error": saveErr.Error()})
			return
		}
	}

	if opErr != nil {
		h.writeOpError(w, operation, result, opErr)
		return
	}
	obs.CountScanOperation(operation, string(result.Outcome))
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) writeOpError(w http.ResponseWriter, operation string, result Result, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		obs.CountScanOperation(operation, "validation_error")
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNoDealBound), errors.Is(err, ErrPendingOpen), errors.Is(err, ErrNoPending), errors.Is(err, ErrEmptySession):
		obs.CountScanOperation(operation, "precondition_violation")
		common.JSONError(w, http.StatusConflict, "PRECONDITION_VIOLATION", err.Error(), nil)
	case errors.Is(err, crm.ErrDealNotFound):
		obs.CountScanOperation(operation, "deal_not_found")
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no deal matches the tracking number", nil)
	case errors.Is(err, ErrCollaborator):
		obs.CountScanOperation(operation, "collaborator_failure")
		details := map[string]any{"error": err.Error()}
		if result.Mutated {
			details["entryRecorded"] = true
		}
		common.JSONError(w, http.StatusBadGateway, "COLLABORATOR_FAILURE", "external dependency failed", details)
	default:
		obs.CountScanOperation(operation, "internal_error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "scan operation failed", map[string]any{"error": err.Error()})
	}
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "session id is required", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", map[string]any{"error": err.Error()})
			return false
		}
	}
	return true
}
