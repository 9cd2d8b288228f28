package http

import "net/http"

// handleAlertCheck surfaces newly due expenses and marks them so the
// next poll stays quiet about them.
func (s *Server) handleAlertCheck(w http.ResponseWriter, r *http.Request) {
	due, err := s.alerts.Check(r.Context(), UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": viewsOf(due)})
}

// handleAlertUpcoming lists everything due in the window, including
// already-notified rows.
func (s *Server) handleAlertUpcoming(w http.ResponseWriter, r *http.Request) {
	due, err := s.alerts.Upcoming(r.Context(), UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"upcoming": viewsOf(due)})
}

func (s *Server) handleAlertDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := s.alerts.Dismiss(r.Context(), UserID(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "dismissed": true})
}
