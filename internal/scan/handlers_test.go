package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gudang/internal/catalog"
)

func newTestRouter(t *testing.T, f *fixture) (*chi.Mux, *Store) {
	t.Helper()
	store := newTestStore(t)
	h := &Handler{Svc: f.svc, Sessions: store, Validate: validator.New()}

	r := chi.NewRouter()
	r.Route("/api/v1/scan/{sessionID}", func(r chi.Router) {
		r.Get("/", h.View)
		r.Post("/tracking", h.Tracking)
		r.Post("/sku", h.Supply)
		r.Post("/machine", h.Machine)
		r.Post("/manual-ref", h.ManualRef)
		r.Post("/new-product", h.NewProduct)
		r.Post("/undo", h.Undo)
		r.Post("/finish", h.Finish)
	})
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error body, got %s", rec.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestHandlerTrackingAndView(t *testing.T) {
	f := newFixture()
	f.crm.deals["TRK-1"] = "deal-1"
	r, store := newTestRouter(t, f)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":"TRK-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "deal-1", sess.DealID)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/scan/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	require.Equal(t, "deal-1", data["dealId"])
}

func TestHandlerTrackingNotFound(t *testing.T) {
	f := newFixture()
	r, store := newTestRouter(t, f)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":"TRK-x"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", errorCode(t, rec))

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, sess.DealID, "failed bind must not persist anything")
}

func TestHandlerValidation(t *testing.T) {
	f := newFixture()
	r, _ := newTestRouter(t, f)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{bad json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{"code":"111","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestHandlerPreconditionViolation(t *testing.T) {
	f := newFixture()
	r, _ := newTestRouter(t, f)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{"code":"111","quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "PRECONDITION_VIOLATION", errorCode(t, rec))

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/finish", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "PRECONDITION_VIOLATION", errorCode(t, rec))
}

func TestHandlerSupplyFlow(t *testing.T) {
	f := newFixture()
	f.crm.deals["TRK-1"] = "deal-1"
	f.catalog.byCode["111"] = catalog.Product{
		Catalog: catalog.Primary, Code: "111", Manufacturer: "Brother", Style: "Widget", BasePrice: money(1000),
	}
	r, store := newTestRouter(t, f)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":"TRK-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{"code":"111","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	require.Equal(t, "added", data["outcome"])
	require.Equal(t, float64(2000), data["total"])

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, sess.Entries, 1)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/finish", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.crm.notes["deal-1"], 1)

	sess, err = store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, sess.DealID)
	require.Empty(t, sess.Entries)
}

func TestHandlerManualRefEscalation(t *testing.T) {
	f := newFixture()
	f.crm.deals["TRK-1"] = "deal-1"
	r, store := newTestRouter(t, f)

	doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":"TRK-1"}`)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{"code":"999","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	require.Equal(t, "needs_manual_reference", data["outcome"])

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/manual-ref", `{"ref":"NOPE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeBody(t, rec)["data"].(map[string]any)
	require.Equal(t, "needs_new_product", data["outcome"])

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/new-product", `{"description":"Bobbin Case","manufacturer":"Brother","price":1200}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Nil(t, sess.Pending)
	require.Len(t, sess.Entries, 1)
	require.Len(t, f.catalog.inserted, 1)
}

func TestHandlerCollaboratorFailureStillPersists(t *testing.T) {
	f := newFixture()
	f.crm.deals["TRK-1"] = "deal-1"
	f.catalog.byCode["111"] = catalog.Product{
		Catalog: catalog.Primary, Code: "111", Manufacturer: "Brother", Style: "Widget", BasePrice: money(500),
	}
	f.counters.err = errors.New("db down")
	r, store := newTestRouter(t, f)

	doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":"TRK-1"}`)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{"code":"111","quantity":1}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "COLLABORATOR_FAILURE", errorCode(t, rec))

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, sess.Entries, 1, "entry must be persisted despite the counter failure")
}

func TestHandlerUndo(t *testing.T) {
	f := newFixture()
	f.crm.deals["TRK-1"] = "deal-1"
	f.catalog.byCode["111"] = catalog.Product{
		Catalog: catalog.Primary, Code: "111", Manufacturer: "Brother", Style: "Widget", BasePrice: money(100),
	}
	r, store := newTestRouter(t, f)

	doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/tracking", `{"trackingNumber":"TRK-1"}`)
	doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/sku", `{"code":"111","quantity":1}`)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	require.Equal(t, "entry_removed", data["outcome"])

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, sess.Entries)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/scan/s1/undo", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerSessionsAreIsolated(t *testing.T) {
	f := newFixture()
	f.crm.deals["TRK-1"] = "deal-1"
	f.crm.deals["TRK-2"] = "deal-2"
	r, store := newTestRouter(t, f)

	doJSON(t, r, http.MethodPost, "/api/v1/scan/a/tracking", `{"trackingNumber":"TRK-1"}`)
	doJSON(t, r, http.MethodPost, "/api/v1/scan/b/tracking", `{"trackingNumber":"TRK-2"}`)

	a, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	b, err := store.Get(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, "deal-1", a.DealID)
	require.Equal(t, "deal-2", b.DealID)
}
