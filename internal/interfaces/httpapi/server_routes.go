package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatchSnapshot)
	mux.HandleFunc("GET /v1/matches/{matchID}/roster", handler.GetRoster)
	mux.HandleFunc("GET /v1/matches/{matchID}/events", handler.ListEvents)
	mux.HandleFunc("GET /v1/matches/{matchID}/stats", handler.GetStats)
	mux.HandleFunc("GET /v1/matches/{matchID}/on-pitch", handler.GetOnPitch)
	mux.HandleFunc("GET /v1/matches/{matchID}/summary", handler.GetMatchSummary)
	mux.HandleFunc("GET /v1/matches/{matchID}/live", handler.StreamLive)
}

func registerAuthorizedMatchRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier, limiter *WriteRateLimiter) {
	write := func(fn http.HandlerFunc) http.Handler {
		return RequireAuth(verifier, limiter.Limit(fn))
	}

	mux.Handle("POST /v1/matches/{matchID}/start", write(handler.StartMatch))
	mux.Handle("POST /v1/matches/{matchID}/roster", write(handler.RegisterPlayers))
	mux.Handle("PUT /v1/matches/{matchID}/captains/{teamID}", write(handler.SetCaptain))
	mux.Handle("POST /v1/matches/{matchID}/goals", write(handler.RecordGoal))
	mux.Handle("POST /v1/matches/{matchID}/sanctions", write(handler.RecordSanction))
	mux.Handle("POST /v1/matches/{matchID}/substitutions", write(handler.RecordSubstitution))
	mux.Handle("DELETE /v1/matches/{matchID}/events/{eventID}", write(handler.DeleteEvent))
	mux.Handle("POST /v1/matches/{matchID}/finalize", write(handler.FinalizeMatch))
	mux.Handle("POST /v1/matches/{matchID}/revert", write(handler.RevertMatch))
}
