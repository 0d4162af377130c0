package httpapi

import (
	"net/http"

	"github.com/riskibarqy/vocalia/internal/usecase"
)

func (h *Handler) GetMatchSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchSnapshot", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	snap, err := h.sessions.Snapshot(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match snapshot failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, snapshotToDTO(ctx, snap))
}

func (h *Handler) StartMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartMatch", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	m, err := h.sessions.Start(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "start match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(ctx, m))
}

func (h *Handler) FinalizeMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinalizeMatch", routeAttrs(r)...)
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := matchIDFromPath(r)
	var req finalizeRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.sessions.Finalize(ctx, usecase.FinalizeInput{
		MatchID:               matchID,
		LocalAmount:           req.LocalAmount,
		AwayAmount:            req.AwayAmount,
		Observations:          req.Observations,
		ArbitratorName:        req.ArbitratorName,
		LocalCaptainSignature: req.LocalCaptainSignature,
		AwayCaptainSignature:  req.AwayCaptainSignature,
		RecordedBy:            principal.UserID,
		ExpectedVersion:       req.ExpectedVersion,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "finalize match failed", "match_id", matchID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, finalizeDTO{
		Match:   matchToDTO(ctx, result.Match),
		Summary: summaryToDTO(result.Summary),
	})
}

func (h *Handler) RevertMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RevertMatch", routeAttrs(r)...)
	defer span.End()

	principal, _ := principalFromContext(ctx)
	matchID := matchIDFromPath(r)

	// An empty body skips the version check.
	var req revertRequest
	if err := h.decodeOptionalAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	m, err := h.sessions.Revert(ctx, usecase.RevertInput{
		MatchID:         matchID,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "revert match failed", "match_id", matchID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "match reverted", "match_id", matchID, "user_id", principal.UserID, "version", m.Version)
	writeSuccess(ctx, w, http.StatusOK, matchToDTO(ctx, m))
}

func (h *Handler) GetMatchSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchSummary", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	summary, err := h.sessions.GetSummary(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match summary failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, summaryToDTO(summary))
}
