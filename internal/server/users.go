package server

import (
	"net/http"

	"github.com/authgate/authgate/internal/access"
	"github.com/authgate/authgate/internal/store"
)

// handleGetMe returns the caller's profile. Guard: active-user.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.ActiveUser(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	profile, err := s.users.Get(r.Context(), principal.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// handleUpdateMe updates the caller's own profile fields. Guard:
// verified-user; identity fields (roles, claims, flags) are not writable
// here.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.VerifiedUser(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.users.Get(r.Context(), principal.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if req.DisplayName != nil {
		profile.DisplayName = *req.DisplayName
	}
	if req.PhotoURL != nil {
		profile.PhotoURL = *req.PhotoURL
	}

	updated, err := s.profiles.UpdateProfile(r.Context(), profile)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// handleListUsers lists profiles. Guard: admin-only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.AdminOnly(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	profiles, err := s.users.List(r.Context(), store.ListProfilesOptions{Limit: 100})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

type setRolesRequest struct {
	Roles []string `json:"roles"`
}

// handleSetRoles replaces a user's roles. Guard: admin-only. The mutation
// itself is audited by the profile service.
func (s *Server) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.AdminOnly(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	var req setRolesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	subjectID := r.PathValue("id")
	if err := s.profiles.SetRoles(r.Context(), principal.ID, subjectID, req.Roles); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"subject_id": subjectID, "roles": req.Roles})
}

type setClaimsRequest struct {
	CustomClaims map[string]any `json:"custom_claims"`
}

// handleSetClaims replaces a user's custom claims. Guard: admin-only.
func (s *Server) handleSetClaims(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.AdminOnly(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	var req setClaimsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	subjectID := r.PathValue("id")
	if err := s.profiles.SetCustomClaims(r.Context(), principal.ID, subjectID, req.CustomClaims); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"subject_id": subjectID})
}

// handleDeleteUser removes a profile. Guard: admin-only.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.AdminOnly(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	subjectID := r.PathValue("id")
	if err := s.profiles.DeleteProfile(r.Context(), principal.ID, subjectID); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleBetaPreview is a placeholder surface behind the beta_dashboard
// feature flag. Guard: feature-gated:beta_dashboard.
func (s *Server) handleBetaPreview(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.FeatureGated("beta_dashboard"), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"preview": true})
}
