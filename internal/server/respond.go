package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/access"
	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/store"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondAuthError maps a classified resolution failure onto the HTTP
// status the original contract promises: missing profile is 404, a disabled
// account is 403, every credential problem is 401.
func respondAuthError(w http.ResponseWriter, err error) {
	switch identity.AuthCodeOf(err) {
	case identity.CodeNotFound:
		respondError(w, http.StatusNotFound, "user not found")
	case identity.CodeDisabled:
		respondError(w, http.StatusForbidden, "account is disabled")
	case identity.CodeExpired:
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "authentication token has expired")
	case identity.CodeRevoked:
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "authentication token has been revoked")
	default:
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "invalid authentication token")
	}
}

// respondDenied writes a 403 carrying only the decision's reason code. The
// response must not reveal whether the resource exists or who owns it.
func respondDenied(w http.ResponseWriter, decision access.Decision) {
	respondJSON(w, http.StatusForbidden, errorResponse{
		Error:  "access denied",
		Reason: string(decision.Reason),
	})
}

// respondStoreError maps store sentinel errors to HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrItemNotFound), errors.Is(err, store.ErrProfileNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrProfileAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	default:
		log.Error().Err(err).Msg("store operation failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
