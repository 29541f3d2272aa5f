package server

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/jarlab/jarlab/internal/report"
	"github.com/jarlab/jarlab/internal/session"
	"go.uber.org/zap"
)

var contentTypes = map[string]string{
	"html": "text/html; charset=utf-8",
	"txt":  "text/markdown; charset=utf-8",
	"pdf":  "application/pdf",
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// handleReport renders the current session as a downloadable report. The
// format comes from the extension of the request path.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.store.ListMeasurements(r.Context())
	if err != nil {
		s.serverError(w, "failed to list measurements", err)
		return
	}
	lists, sel := s.loadConfig()
	rep := report.Build(sess, records, sel, lists, s.now())

	ext := strings.TrimPrefix(path.Ext(r.URL.Path), ".")
	var buf bytes.Buffer
	switch ext {
	case "html":
		err = report.WriteHTML(&buf, rep)
	case "txt":
		err = report.WriteText(&buf, rep)
	case "pdf":
		err = report.WritePDF(&buf, rep)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, "failed to render report", err)
		return
	}

	s.metrics.Reports.WithLabelValues(ext).Inc()
	s.logger.Info("report generated", zap.String("format", ext), zap.String("date", rep.TestDate))
	s.download(w, rep.FileName(ext), ext, buf.Bytes())
}

// handleExport downloads the filtered database listing.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.store.ListMeasurements(r.Context())
	if err != nil {
		s.serverError(w, "failed to list measurements", err)
		return
	}
	records = queryFilter(r.URL.Query()).Apply(records)

	ext := strings.TrimPrefix(path.Ext(r.URL.Path), ".")
	var buf bytes.Buffer
	switch ext {
	case "csv":
		err = report.WriteCSV(&buf, records)
	case "xlsx":
		err = report.WriteXLSX(&buf, records)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, "failed to export measurements", err)
		return
	}

	s.metrics.Reports.WithLabelValues(ext).Inc()
	s.download(w, report.ExportFileName(s.now(), ext), ext, buf.Bytes())
}

func (s *Server) download(w http.ResponseWriter, name, ext string, body []byte) {
	w.Header().Set("Content-Type", contentTypes[ext])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(body)
}
