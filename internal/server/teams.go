package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

type createTeamRequest struct {
	Name          string `json:"name" validate:"required"`
	InstitutionID string `json:"institution_id" validate:"required"`
}

// handleTeamCreate implements POST /api/teams.
func (s *Server) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "name and institution_id are required")
		return
	}

	id := uuid.NewString()
	if err := s.teams.CreateTeam(r.Context(), id, req.Name, req.InstitutionID); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to create team")
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, postgres.Team{ID: id, Name: req.Name, InstitutionID: req.InstitutionID})
}

// handleTeamGet implements GET /api/teams/{id}.
func (s *Server) handleTeamGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	team, err := s.teams.GetTeam(r.Context(), id)
	if err == postgres.ErrTeamNotFound {
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "team not found")
		return
	}
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to read team")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, team)
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// handleTeamAddMember implements POST /api/teams/{id}/members.
func (s *Server) handleTeamAddMember(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "id")
	var req addMemberRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "user_id and role are required")
		return
	}
	if err := s.teams.AddMember(r.Context(), teamID, req.UserID, req.Role); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to add team member")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleTeamRemoveMember implements DELETE /api/teams/{id}/members/{user_id}.
func (s *Server) handleTeamRemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "user_id")
	if err := s.teams.RemoveMember(r.Context(), teamID, userID); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to remove team member")
		return
	}
	w.WriteHeader(http.StatusOK)
}
