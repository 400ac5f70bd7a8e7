package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ecorisk/bowtie/pkg/diagram"
	"github.com/ecorisk/bowtie/pkg/risk"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": Version,
		"uptime":  time.Since(s.startTime).String(),
		"rows":    len(s.currentTable().Rows),
	})
}

// optionsFromQuery maps the diagram query parameters onto build options.
// Barrier layers are shown unless show_intermediate=false is given.
func optionsFromQuery(r *http.Request) diagram.Options {
	q := r.URL.Query()

	opts := diagram.Options{
		CentralProblem:   q.Get("central_problem"),
		ShowIntermediate: true,
	}
	if v := q.Get("show_intermediate"); v != "" {
		opts.ShowIntermediate, _ = strconv.ParseBool(v)
	}
	opts.ShowRiskColors, _ = strconv.ParseBool(q.Get("show_risk_colors"))
	if v, err := strconv.Atoi(q.Get("node_size")); err == nil {
		opts.NodeSize = v
	}
	return opts
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	table := s.currentTable()
	if len(table.Rows) == 0 {
		writeError(w, http.StatusNotFound, "no table loaded")
		return
	}
	graph := s.buildCached(table, optionsFromQuery(r))
	writeJSON(w, http.StatusOK, graph)
}

func (s *Server) handleRiskSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentTable().Summarize())
}

type riskScoreRequest struct {
	Likelihoods []int         `json:"likelihoods,omitempty"`
	Severities  []int         `json:"severities,omitempty"`
	Pathway     *risk.Pathway `json:"pathway,omitempty"`
}

type pathwayScoreResponse struct {
	OverallLikelihood int        `json:"overall_likelihood"`
	OverallSeverity   int        `json:"overall_severity"`
	Level             risk.Level `json:"level"`
}

// handleRiskScore rates score pairs without touching the loaded table:
// either parallel likelihood/severity vectors, or one full pathway.
func (s *Server) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	var req riskScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Pathway != nil {
		writeJSON(w, http.StatusOK, pathwayScoreResponse{
			OverallLikelihood: req.Pathway.OverallLikelihood(),
			OverallSeverity:   req.Pathway.OverallSeverity(),
			Level:             req.Pathway.OverallLevel(),
		})
		return
	}

	levels, err := risk.ForScores(req.Likelihoods, req.Severities)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]risk.Level{"levels": levels})
}
