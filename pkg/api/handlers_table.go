package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/logging"
	"github.com/ecorisk/bowtie/pkg/tabular"
)

type tableUploadRequest struct {
	Rows []bowtie.Row `json:"rows"`
	// Seed, when non-zero, makes default-fill deterministic across
	// uploads; test fixtures rely on it.
	Seed int64 `json:"seed,omitempty"`
}

type tableResponse struct {
	Rows    []bowtie.Row   `json:"rows"`
	Summary bowtie.Summary `json:"summary"`
}

// handleTableUpload accepts either a JSON row list or a CSV body and makes
// the normalized result the session's current table.
func (s *Server) handleTableUpload(w http.ResponseWriter, r *http.Request) {
	var table *bowtie.Table
	seed := time.Now().UnixNano()

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "text/csv"):
		parsed, err := tabular.Read(r.Body)
		if err != nil {
			s.rejectTable(w, err)
			return
		}
		table = parsed
	default:
		var req tableUploadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Seed != 0 {
			seed = req.Seed
		}
		table = &bowtie.Table{Rows: req.Rows}
	}

	normalized, err := bowtie.NewNormalizer(seed).Normalize(table)
	if err != nil {
		s.rejectTable(w, err)
		return
	}

	s.metrics.RowsValidatedTotal.WithLabelValues("ok").Add(float64(len(normalized.Rows)))
	s.ReplaceTable(normalized)
	s.logger.Info("table replaced", logging.RowCount(len(normalized.Rows)))

	writeJSON(w, http.StatusOK, tableResponse{
		Rows:    normalized.Rows,
		Summary: normalized.Summarize(),
	})
}

func (s *Server) rejectTable(w http.ResponseWriter, err error) {
	s.metrics.RowsValidatedTotal.WithLabelValues("rejected").Inc()

	var verr *bowtie.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":           "validation failed",
			"missing_columns": verr.MissingColumns,
			"row_errors":      verr.RowErrors,
		})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) handleTableGet(w http.ResponseWriter, r *http.Request) {
	table := s.currentTable()
	writeJSON(w, http.StatusOK, tableResponse{
		Rows:    table.Rows,
		Summary: table.Summarize(),
	})
}

// handleTableExport streams the current table as CSV. With upload=true and
// a configured uploader, the export is also pushed to the backup bucket.
func (s *Server) handleTableExport(w http.ResponseWriter, r *http.Request) {
	table := s.currentTable()
	if len(table.Rows) == 0 {
		writeError(w, http.StatusNotFound, "no table loaded")
		return
	}

	extended, _ := strconv.ParseBool(r.URL.Query().Get("extended"))

	var buf bytes.Buffer
	var err error
	if extended {
		err = tabular.WriteExtended(&buf, table)
	} else {
		err = tabular.Write(&buf, table)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed: "+err.Error())
		return
	}

	if upload, _ := strconv.ParseBool(r.URL.Query().Get("upload")); upload {
		if s.uploader == nil {
			writeError(w, http.StatusNotImplemented, "backup upload not configured")
			return
		}
		name := fmt.Sprintf("bowtie-export-%d.csv", time.Now().Unix())
		key, err := s.uploader.Upload(r.Context(), name, "text/csv", buf.Bytes())
		if err != nil {
			writeError(w, http.StatusBadGateway, "backup upload failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"uploaded": key})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bowtie-export.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
