package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/vocalia/internal/usecase"
)

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRoster", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	item, err := h.roster.GetRoster(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get roster failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rosterToDTO(ctx, item))
}

func (h *Handler) RegisterPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegisterPlayers", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	var req registerPlayersRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.roster.RegisterPlayers(ctx, usecase.RegisterPlayersInput{
		MatchID:   matchID,
		TeamID:    req.TeamID,
		PlayerIDs: req.PlayerIDs,
		Starting:  req.Starting,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register players failed", "match_id", matchID, "team_id", req.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.Inserted > 0 {
		status = http.StatusCreated
	}
	writeSuccess(ctx, w, status, registerPlayersDTO{
		Inserted: result.Inserted,
		Roster:   rosterToDTO(ctx, result.Roster),
	})
}

func (h *Handler) SetCaptain(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetCaptain", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	teamID := strings.TrimSpace(r.PathValue("teamID"))
	var req setCaptainRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	playerID := ""
	if req.PlayerID != nil {
		playerID = strings.TrimSpace(*req.PlayerID)
	}

	item, err := h.roster.SetCaptain(ctx, usecase.SetCaptainInput{
		MatchID:  matchID,
		TeamID:   teamID,
		PlayerID: playerID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "set captain failed", "match_id", matchID, "team_id", teamID, "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rosterToDTO(ctx, item))
}
