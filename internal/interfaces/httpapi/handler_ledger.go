package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/vocalia/internal/usecase"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListEvents", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	events, err := h.ledger.ListEvents(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list events failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, eventsToDTO(ctx, events))
}

func (h *Handler) RecordGoal(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordGoal", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	var req recordGoalRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	event, err := h.ledger.RecordGoal(ctx, usecase.RecordGoalInput{
		MatchID:   matchID,
		PlayerID:  req.PlayerID,
		IsOwnGoal: req.IsOwnGoal,
		Minute:    req.Minute,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record goal failed", "match_id", matchID, "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, eventToDTO(event))
}

func (h *Handler) RecordSanction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordSanction", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	var req recordSanctionRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	event, err := h.ledger.RecordSanction(ctx, usecase.RecordSanctionInput{
		MatchID:  matchID,
		PlayerID: req.PlayerID,
		Type:     req.Type,
		Minute:   req.Minute,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record sanction failed", "match_id", matchID, "player_id", req.PlayerID, "type", req.Type, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, eventToDTO(event))
}

func (h *Handler) RecordSubstitution(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordSubstitution", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	var req recordSubstitutionRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	event, err := h.ledger.RecordSubstitution(ctx, usecase.RecordSubstitutionInput{
		MatchID:     matchID,
		PlayerOutID: req.PlayerOutID,
		PlayerInID:  req.PlayerInID,
		Minute:      req.Minute,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record substitution failed",
			"match_id", matchID,
			"player_out_id", req.PlayerOutID,
			"player_in_id", req.PlayerInID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, eventToDTO(event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteEvent", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	eventID := strings.TrimSpace(r.PathValue("eventID"))
	if err := h.ledger.DeleteEvent(ctx, usecase.DeleteEventInput{MatchID: matchID, EventID: eventID}); err != nil {
		h.logger.WarnContext(ctx, "delete event failed", "match_id", matchID, "event_id", eventID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"deleted": eventID})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStats", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	tally, err := h.ledger.Stats(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get stats failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, statsToDTO(matchID, tally))
}

func (h *Handler) GetOnPitch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOnPitch", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	pitch, err := h.ledger.OnPitch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get on-pitch failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, onPitchToDTO(pitch))
}
