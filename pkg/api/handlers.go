package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/vault"
)

// VaultReader is the read-model surface the API serves.
type VaultReader interface {
	ListVaults(ctx context.Context, cursor string, size int, owner string) ([]vault.View, string, error)
	GetVault(ctx context.Context, vaultID string) (vault.View, error)
	ListAuctions(ctx context.Context, cursor string, size int) ([]*vault.LoanVaultLiquidated, string, error)
	GetScheme(id string) (*vault.LoanSchemeView, error)
	ListSchemes(cursor string, size int) ([]*vault.LoanSchemeView, string, error)
}

// SyncStatus reports indexing progress for the health endpoint.
type SyncStatus interface {
	LastIndexedHeight() (uint64, error)
	ChainTip(ctx context.Context) (uint64, error)
}

// Handler handles HTTP requests for the API.
type Handler struct {
	vaults VaultReader
	status SyncStatus
	log    *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(vaults VaultReader, status SyncStatus, log *logger.Logger) *Handler {
	return &Handler{
		vaults: vaults,
		status: status,
		log:    log,
	}
}

// ListVaults returns a page of vault views in the node's native ordering.
func (h *Handler) ListVaults(w http.ResponseWriter, r *http.Request) {
	size, err := parseSize(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, next, err := h.vaults.ListVaults(r.Context(),
		r.URL.Query().Get("next"), size, r.URL.Query().Get("owner"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PageResponse{Data: views, Next: next})
}

// GetVault returns the view of a single vault.
func (h *Handler) GetVault(w http.ResponseWriter, r *http.Request) {
	vaultID := r.PathValue("id")
	if vaultID == "" {
		respondError(w, http.StatusBadRequest, "vault id is required")
		return
	}

	view, err := h.vaults.GetVault(r.Context(), vaultID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetVaultAuction returns the liquidation batches of a single vault.
func (h *Handler) GetVaultAuction(w http.ResponseWriter, r *http.Request) {
	vaultID := r.PathValue("id")
	if vaultID == "" {
		respondError(w, http.StatusBadRequest, "vault id is required")
		return
	}

	view, err := h.vaults.GetVault(r.Context(), vaultID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	liquidated, ok := view.(*vault.LoanVaultLiquidated)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("vault '%s' is not under liquidation", vaultID))
		return
	}

	respondJSON(w, http.StatusOK, liquidated)
}

// ListAuctions returns a page of vaults under liquidation.
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	size, err := parseSize(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, next, err := h.vaults.ListAuctions(r.Context(), r.URL.Query().Get("next"), size)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PageResponse{Data: views, Next: next})
}

// ListSchemes returns a page of loan schemes.
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	size, err := parseSize(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, next, err := h.vaults.ListSchemes(r.URL.Query().Get("next"), size)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PageResponse{Data: views, Next: next})
}

// GetScheme returns a single loan scheme.
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	schemeID := r.PathValue("id")
	if schemeID == "" {
		respondError(w, http.StatusBadRequest, "scheme id is required")
		return
	}

	view, err := h.vaults.GetScheme(schemeID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Health reports indexing progress against the node's chain tip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	last, err := h.status.LastIndexedHeight()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read indexing state")
		return
	}

	tip, err := h.status.ChainTip(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "node unreachable")
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		Timestamp:        time.Now().UTC(),
		LastIndexedBlock: last,
		ChainTip:         tip,
	})
}

// respondServiceError translates the read-model error taxonomy to HTTP
// status codes, preserving the upstream message for diagnostics.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vault.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, vault.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vault.ErrBadRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Errorf("request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseSize reads the page size query parameter. The service clamps it to
// the configured maximum; only non-numeric input is rejected here.
func parseSize(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("size")
	if raw == "" {
		return 0, nil
	}

	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid size parameter: %q", raw)
	}

	return size, nil
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode JSON first to catch any errors before writing status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	if _, err := w.Write(encoded); err != nil {
		// Headers are already out, nothing left to do
		return
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
