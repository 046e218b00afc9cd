package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/core/presence"
	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
)

type trackRequest struct {
	SessionID string `json:"sessionId"`
	Page      string `json:"page"`
	SocketID  string `json:"socketId,omitempty"`
}

type trackResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	LiveCount int64  `json:"liveCount"`
}

type leaveRequest struct {
	SessionID string `json:"sessionId"`
}

type leaveResponse struct {
	Success   bool  `json:"success"`
	LiveCount int64 `json:"liveCount"`
}

// trackVisitor records a heartbeat for the caller's session. The session ID
// comes from the client; IP and user agent come from the request itself.
func (a *App) trackVisitor(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "sessionId is required"})
		return
	}
	if req.Page == "" {
		req.Page = "/"
	}

	count, err := a.tracker.Track(r.Context(), presence.JoinParams{
		SessionID: req.SessionID,
		SocketID:  req.SocketID,
		IPAddress: clientip.GetIP(r),
		UserAgent: r.UserAgent(),
		Page:      req.Page,
	})
	if err != nil {
		if errors.Is(err, presence.ErrMissingSessionID) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "sessionId is required"})
			return
		}
		a.logger.LogAttrs(r.Context(), slog.LevelError, "visitor track failed",
			logger.Component("presence"),
			logger.SessionID(req.SessionID),
			logger.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, trackResponse{
		Success:   true,
		SessionID: req.SessionID,
		LiveCount: count,
	})
}

// leaveVisitor marks the caller's session inactive. Unknown sessions still
// succeed so a stale tab closing twice is not an error.
func (a *App) leaveVisitor(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "sessionId is required"})
		return
	}

	count, err := a.tracker.Leave(r.Context(), req.SessionID)
	if err != nil {
		a.logger.LogAttrs(r.Context(), slog.LevelError, "visitor leave failed",
			logger.Component("presence"),
			logger.SessionID(req.SessionID),
			logger.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, leaveResponse{Success: true, LiveCount: count})
}

// visitorStats serves the aggregated visitor counters.
func (a *App) visitorStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.tracker.Stats(r.Context())
	if err != nil {
		a.logger.LogAttrs(r.Context(), slog.LevelError, "visitor stats failed",
			logger.Component("presence"),
			logger.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
