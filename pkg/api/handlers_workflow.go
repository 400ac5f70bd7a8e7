package api

import (
	"errors"
	"net/http"

	"github.com/ecorisk/bowtie/pkg/logging"
	"github.com/ecorisk/bowtie/pkg/workflow"
)

type sessionCreateRequest struct {
	ProjectName string `json:"project_name"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session := workflow.NewSession(req.ProjectName)
	if err := s.store.Put(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "store session: "+err.Error())
		return
	}

	s.bumpActiveSessions(r)
	s.logger.Info("workflow session created", logging.SessionID(session.ID))
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type sessionUpdateRequest struct {
	ProjectName    *string                  `json:"project_name,omitempty"`
	CentralProblem *string                  `json:"central_problem,omitempty"`
	Drafts         *[]workflow.PathwayDraft `json:"drafts,omitempty"`
}

// handleSessionUpdate applies a partial update. Omitted fields keep their
// value; drafts, when given, replace the whole list (last write wins).
func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req sessionUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ProjectName != nil {
		session.ProjectName = *req.ProjectName
	}
	if req.CentralProblem != nil {
		session.CentralProblem = *req.CentralProblem
	}
	if req.Drafts != nil {
		session.Drafts = *req.Drafts
	}

	if err := s.store.Put(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "store session: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.bumpActiveSessions(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionAdvance(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	from := session.Step
	if err := session.Advance(); err != nil {
		var stepErr *workflow.StepError
		if errors.As(err, &stepErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": stepErr.Reason,
				"step":  stepErr.Step.String(),
			})
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if err := s.store.Put(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "store session: "+err.Error())
		return
	}

	s.metrics.WorkflowStepAdvances.WithLabelValues(from.String()).Inc()
	s.logger.Info("workflow step advanced",
		logging.SessionID(session.ID), logging.WorkflowStep(session.Step.String()))
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionBack(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	if err := session.Back(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.store.Put(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "store session: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleSessionExport scores the session's drafts into a table. With
// load=true the result also becomes the service's current table.
func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	table, err := session.ExportTable()
	if err != nil {
		var stepErr *workflow.StepError
		if errors.As(err, &stepErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": stepErr.Reason,
				"step":  stepErr.Step.String(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("load") == "true" {
		s.ReplaceTable(table)
	}

	s.metrics.WorkflowExportsTotal.Inc()
	s.logger.Info("workflow exported",
		logging.SessionID(session.ID), logging.RowCount(len(table.Rows)))
	writeJSON(w, http.StatusOK, tableResponse{
		Rows:    table.Rows,
		Summary: table.Summarize(),
	})
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	session, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, workflow.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) bumpActiveSessions(r *http.Request) {
	if sessions, err := s.store.List(r.Context()); err == nil {
		s.metrics.WorkflowSessionsActive.Set(float64(len(sessions)))
	}
}
