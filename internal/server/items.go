package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate/internal/access"
	"github.com/authgate/authgate/internal/resource"
	"github.com/authgate/authgate/internal/store"
)

// handleListItems returns public items, plus the caller's own items when a
// principal is present. Anonymous callers see the public set only.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := s.items.List(ctx, store.ListItemsOptions{
		Visibility: store.VisibilityPublic,
		Limit:      100,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if principal := optionalPrincipal(r); principal != nil {
		own, err := s.items.List(ctx, store.ListItemsOptions{
			OwnerID: principal.ID,
			Limit:   100,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			seen[item.ItemID] = struct{}{}
		}
		for _, item := range own {
			if _, ok := seen[item.ItemID]; !ok {
				items = append(items, item)
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createItemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
}

// handleCreateItem creates an item owned by the caller. Guard: verified-user.
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.VerifiedUser(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	var req createItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	visibility := store.Visibility(req.Visibility)
	switch visibility {
	case "":
		visibility = store.VisibilityPrivate
	case store.VisibilityPublic, store.VisibilityPrivate:
	default:
		respondError(w, http.StatusBadRequest, "visibility must be public or private")
		return
	}

	now := time.Now().UTC()

	item := &store.Item{
		ItemID:      uuid.NewString(),
		OwnerID:     principal.ID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.items.Create(r.Context(), item); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// itemGuard admits owners, admins, and moderators on the item view,
// update, and delete paths.
var itemGuard = access.ResourceAccessWith(access.ResourceAccessConfig{
	OwnerAllowed:     true,
	AdminAllowed:     true,
	ModeratorAllowed: true,
})

// handleGetItem returns an item. Public items are readable by anyone
// including anonymous callers; private items go through resource-access.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if item.Visibility != store.VisibilityPublic {
		principal := s.requirePrincipal(w, r)
		if principal == nil {
			return
		}

		decision := s.engine.Evaluate(r.Context(), itemGuard, principal, resource.DescribeItem(item))
		if !decision.Allowed {
			respondDenied(w, decision)
			return
		}
	}

	respondJSON(w, http.StatusOK, item)
}

type updateItemRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  *string  `json:"visibility,omitempty"`
}

// handleUpdateItem modifies an item. Guard: resource-access including
// moderators.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	item, err := s.items.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	decision := s.engine.Evaluate(r.Context(), itemGuard, principal, resource.DescribeItem(item))
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	var req updateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Tags != nil {
		item.Tags = req.Tags
	}
	if req.Visibility != nil {
		visibility := store.Visibility(*req.Visibility)
		if visibility != store.VisibilityPublic && visibility != store.VisibilityPrivate {
			respondError(w, http.StatusBadRequest, "visibility must be public or private")
			return
		}
		item.Visibility = visibility
	}

	item.UpdatedAt = time.Now().UTC()

	if err := s.items.Update(r.Context(), item); err != nil {
		respondStoreError(w, err)
		return
	}

	updated, err := s.items.Get(r.Context(), item.ItemID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// handleDeleteItem removes an item. Moderators may delete alongside owners
// and admins.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	item, err := s.items.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	decision := s.engine.Evaluate(r.Context(), itemGuard, principal, resource.DescribeItem(item))
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	if err := s.items.Delete(r.Context(), item.ItemID); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleLikeItem bumps the like counter. Guard: active-user. The increment
// is atomic in the store so concurrent likes never lose updates.
func (s *Server) handleLikeItem(w http.ResponseWriter, r *http.Request) {
	s.incrementCounter(w, r, s.items.IncrementLikes)
}

// handleShareItem bumps the share counter. Guard: active-user.
func (s *Server) handleShareItem(w http.ResponseWriter, r *http.Request) {
	s.incrementCounter(w, r, s.items.IncrementShares)
}

func (s *Server) incrementCounter(w http.ResponseWriter, r *http.Request, increment func(ctx context.Context, itemID string, delta int64) error) {
	principal := s.requirePrincipal(w, r)
	if principal == nil {
		return
	}

	decision := s.engine.Evaluate(r.Context(), access.ActiveUser(), principal, nil)
	if !decision.Allowed {
		respondDenied(w, decision)
		return
	}

	itemID := r.PathValue("id")

	if err := increment(r.Context(), itemID, 1); err != nil {
		respondStoreError(w, err)
		return
	}

	item, err := s.items.Get(r.Context(), itemID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}
