package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/share"
)

// accessPolicyRequest is the wire shape of share.AccessPolicy, which
// carries no json tags of its own (it is an in-memory domain type
// shared with share.MemStore) — mirrors the same DTO pattern
// internal/storage/postgres uses for the column's JSONB encoding.
type accessPolicyRequest struct {
	Type          string   `json:"type" validate:"required"`
	TeamID        string   `json:"team_id,omitempty"`
	UserIDs       []string `json:"user_ids,omitempty"`
	InstitutionID string   `json:"institution_id"`
	Permissions   []string `json:"permissions" validate:"required,min=1"`
	ExpiresAt     time.Time `json:"expires_at" validate:"required"`
	MaxDownloads  *uint32  `json:"max_downloads,omitempty"`
}

func (p accessPolicyRequest) toDomain() share.AccessPolicy {
	perms := make([]share.Permission, len(p.Permissions))
	for i, v := range p.Permissions {
		perms[i] = share.Permission(v)
	}
	return share.AccessPolicy{
		Type:          share.PolicyType(p.Type),
		TeamID:        p.TeamID,
		UserIDs:       p.UserIDs,
		InstitutionID: p.InstitutionID,
		Permissions:   perms,
		ExpiresAt:     p.ExpiresAt,
		MaxDownloads:  p.MaxDownloads,
	}
}

type publishShareRequest struct {
	OwnerUserID    string                    `json:"owner_user_id" validate:"required"`
	Token          string                    `json:"token" validate:"required"`
	ContentType    share.ContentType         `json:"content_type" validate:"required"`
	ContentID      string                    `json:"content_id" validate:"required"`
	Classification share.DataClassification  `json:"classification" validate:"required"`
	AccessPolicy   accessPolicyRequest       `json:"access_policy"`
}

// handleSharePublish implements POST /api/shares, spec §6: 201 on
// success, 400 INVALID_INPUT on a malformed body, 403 FORBIDDEN when
// the caller isn't the share's declared owner, 401 UNAUTHORIZED with
// no caller at all.
func (s *Server) handleSharePublish(w http.ResponseWriter, r *http.Request) {
	callerID, ok := httpapi.UserIDFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "authentication required")
		return
	}

	var req publishShareRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "missing required share fields")
		return
	}
	if req.OwnerUserID != callerID {
		httpapi.WriteError(w, http.StatusForbidden, httpapi.CodeForbidden, "owner_user_id must match the authenticated caller")
		return
	}

	meta := share.ShareMetadata{
		Token:          req.Token,
		OwnerUserID:    req.OwnerUserID,
		ContentType:    req.ContentType,
		ContentID:      req.ContentID,
		Classification: req.Classification,
		AccessPolicy:   req.AccessPolicy.toDomain(),
	}
	if err := s.shares.Publish(r.Context(), callerID, meta); err != nil {
		if err == share.ErrForbidden {
			httpapi.WriteError(w, http.StatusForbidden, httpapi.CodeForbidden, "share token is owned by another user")
			return
		}
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to publish share")
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, meta)
}

// handleShareGet implements GET /api/shares/{token}, spec §6: 200
// SharedResultInfo / 404 SHARE_NOT_FOUND, or one of the access-denial
// codes from share.CheckAccess (spec §4.5) mapped through
// httpapi.DeniedReasonCode.
func (s *Server) handleShareGet(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	meta, err := s.shares.Get(r.Context(), token)
	if err != nil {
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeShareNotFound, "share not found")
		return
	}

	callerID, _ := httpapi.UserIDFromContext(r.Context())
	result, err := share.Resolve(r.Context(), s.directory, time.Now(), callerID, meta)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to evaluate share access")
		return
	}
	if !result.Granted {
		code := httpapi.DeniedReasonCode(string(result.Reason))
		httpapi.WriteError(w, http.StatusForbidden, code, "access denied: "+string(result.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, meta)
}

// handleShareRevoke implements DELETE /api/shares/{token}.
func (s *Server) handleShareRevoke(w http.ResponseWriter, r *http.Request) {
	callerID, ok := httpapi.UserIDFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "authentication required")
		return
	}
	token := chi.URLParam(r, "token")
	err := s.shares.Revoke(r.Context(), callerID, token)
	switch err {
	case nil:
		w.WriteHeader(http.StatusOK)
	case share.ErrNotFound:
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeShareNotFound, "share not found")
	case share.ErrForbidden:
		httpapi.WriteError(w, http.StatusForbidden, httpapi.CodeForbidden, "not the share owner")
	default:
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to revoke share")
	}
}

// handleShareListForUser implements GET /api/shares/user/{user_id},
// spec §6: the caller must equal user_id; limit is clamped to 1000.
func (s *Server) handleShareListForUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := httpapi.UserIDFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "authentication required")
		return
	}
	userID := chi.URLParam(r, "user_id")
	if userID != callerID {
		httpapi.WriteError(w, http.StatusForbidden, httpapi.CodeForbidden, "cannot list another user's shares")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	shares, err := s.shares.ListUserShares(r.Context(), userID, limit)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to list shares")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"shares": shares})
}
