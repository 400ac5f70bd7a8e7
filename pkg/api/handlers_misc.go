package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ecorisk/bowtie/pkg/inference"
	"github.com/ecorisk/bowtie/pkg/vocab"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.users == nil || s.jwt == nil {
		writeError(w, http.StatusNotImplemented, "authentication not configured")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  user.Role,
	})
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.vocabulary)
}

func (s *Server) handleVocabSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	text := q.Get("text")
	if category == "" || text == "" {
		writeError(w, http.StatusBadRequest, "category and text are required")
		return
	}

	limit := 5
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}

	matches := s.linker.Suggest(category, text, limit)
	if matches == nil {
		matches = []vocab.Match{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotImplemented, "layer catalog not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"layers": s.catalog.Available(r.Context()),
	})
}

func (s *Server) handleLayerLegend(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotImplemented, "layer catalog not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"legend_url": s.catalog.LegendURL(r.PathValue("name")),
	})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if s.inference == nil {
		writeJSON(w, http.StatusOK, inference.Capabilities{})
		return
	}
	writeJSON(w, http.StatusOK, s.inference.Capabilities())
}

type posteriorRequest struct {
	Target   string             `json:"target"`
	Evidence inference.Evidence `json:"evidence"`
}

func (s *Server) handlePosterior(w http.ResponseWriter, r *http.Request) {
	if s.inference == nil {
		writeError(w, http.StatusServiceUnavailable, "inference not configured")
		return
	}

	var req posteriorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	posterior, err := s.inference.QueryPosterior(r.Context(), req.Target, req.Evidence)
	s.metrics.RecordInferenceCall("bayes_net", err)
	if err != nil {
		if errors.Is(err, inference.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "bayesian engine unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posterior": posterior})
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.inference == nil {
		writeError(w, http.StatusServiceUnavailable, "inference not configured")
		return
	}

	var req predictRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Features) == 0 {
		writeError(w, http.StatusBadRequest, "features are required")
		return
	}

	label, confidence, err := s.inference.PredictLevel(r.Context(), req.Features)
	s.metrics.RecordInferenceCall("ensemble", err)
	if err != nil {
		if errors.Is(err, inference.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "ensemble engine unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":      label,
		"confidence": confidence,
	})
}
