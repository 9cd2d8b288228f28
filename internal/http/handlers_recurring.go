package http

import "net/http"

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.transactions.ListTemplates(r.Context(), UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"templates": viewsOf(templates)})
}

func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	created, err := s.transactions.GenerateAll(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if created > 0 {
		s.invalidateSummaries(userID)
	}
	respondJSON(w, http.StatusOK, map[string]any{"created": created})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := UserID(r.Context())
	created, err := s.transactions.GenerateOccurrences(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if created > 0 {
		s.invalidateSummaries(userID)
	}
	respondJSON(w, http.StatusOK, map[string]any{"template_id": id, "created": created})
}
