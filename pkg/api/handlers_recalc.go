package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/exchange"
	"github.com/dd0wney/cluso-tara/pkg/feed"
	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// recalculateProject runs an explicit recalculation pass. Without a
// body the pass runs under the project's own active configurations and
// the result is persisted. A body naming a configuration set turns the
// request into a what-if preview: the pass runs under exactly those
// active ids and nothing is stored.
func (s *Server) recalculateProject(w http.ResponseWriter, r *http.Request, projectID string) {
	var req RecalculationRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSONOptional(&req)
	if decoder.RespondError() {
		return
	}

	ctx := r.Context()
	stored, err := s.store.Get(ctx, projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	start := time.Now()

	if req.Configurations != nil {
		active := make(map[string]bool, len(*req.Configurations))
		for _, id := range *req.Configurations {
			active[id] = true
		}
		result, err := s.recalc.RecalculateUnder(stored.Project, active)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "recalculate project"))
			return
		}
		s.respondJSON(w, http.StatusOK, RecalculationResponse{
			ProjectID:   projectID,
			Persisted:   false,
			Stats:       result.Stats,
			Warnings:    result.Warnings,
			RiskByLevel: risk.Distribution(result.Project),
			Time:        time.Since(start).String(),
		})
		return
	}

	result, err := s.recalc.Recalculate(stored.Project)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "recalculate project"))
		return
	}
	elapsed := time.Since(start)

	saved, err := s.store.Save(ctx, result.Project)
	if err != nil {
		s.recordEvent(audit.NewFailedEvent(projectID, audit.ActionRecalculate, audit.EntityProject, projectID, err.Error()))
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "save project"))
		return
	}

	s.recordEvent(audit.NewEvent(projectID, audit.ActionRecalculate, audit.EntityProject, projectID, audit.StatusSuccess))
	s.afterRecalc("explicit", result.Stats, result.Warnings, saved, feed.EventProjectRecalculated, elapsed)

	s.log.Info("project recalculated",
		logging.ProjectID(projectID),
		logging.Int("scenarios", result.Stats.Scenarios),
		logging.WarningCount(len(result.Warnings)),
		logging.Latency(elapsed))

	s.respondJSON(w, http.StatusOK, RecalculationResponse{
		ProjectID:   projectID,
		Persisted:   true,
		Revision:    saved.Revision,
		Fingerprint: saved.Fingerprint,
		Stats:       result.Stats,
		Warnings:    result.Warnings,
		RiskByLevel: risk.Distribution(saved.Project),
		Time:        elapsed.String(),
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).
		Post(func() { s.importProject(w, r) }).
		NotAllowed()
}

// importProject accepts a portable project file, recalculates it and
// persists the result. Importing over an existing project requires
// replace=true; derived values in the file are never trusted, the
// recalculation inside exchange.Import rewrites them all.
func (s *Server) importProject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Reading request body failed")
		return
	}

	start := time.Now()
	result, err := exchange.Import(data, s.recalc)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	elapsed := time.Since(start)

	ctx := r.Context()
	project := result.Project
	if _, err := s.store.Get(ctx, project.ID); err == nil {
		if r.URL.Query().Get("replace") != "true" {
			s.recordEvent(audit.NewFailedEvent(project.ID, audit.ActionImport, audit.EntityProject, project.ID, "project already exists"))
			s.respondError(w, http.StatusConflict, "Project already exists; pass replace=true to overwrite")
			return
		}
	} else if !model.IsNotFound(err) {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "load project"))
		return
	}

	saved, err := s.store.Save(ctx, project)
	if err != nil {
		s.recordEvent(audit.NewFailedEvent(project.ID, audit.ActionImport, audit.EntityProject, project.ID, err.Error()))
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "save project"))
		return
	}

	s.recordEvent(audit.NewEvent(project.ID, audit.ActionImport, audit.EntityProject, project.ID, audit.StatusSuccess))
	s.afterRecalc("import", result.Stats, result.Warnings, saved, feed.EventProjectImported, elapsed)

	s.log.Info("project imported",
		logging.ProjectID(project.ID),
		logging.String("title", project.Title),
		logging.WarningCount(len(result.Warnings)))

	s.respondJSON(w, http.StatusCreated, ImportResponse{
		ProjectID:   saved.Project.ID,
		Title:       saved.Project.Title,
		Revision:    saved.Revision,
		Fingerprint: saved.Fingerprint,
		Stats:       result.Stats,
		Warnings:    result.Warnings,
	})
}

// exportProject streams the project as a portable file. The export
// recalculates first, so a downloaded file always carries consistent
// derived values regardless of what was stored.
func (s *Server) exportProject(w http.ResponseWriter, r *http.Request, projectID string) {
	stored, err := s.store.Get(r.Context(), projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	result, err := exchange.Export(stored.Project, s.recalc)
	if err != nil {
		s.recordEvent(audit.NewFailedEvent(projectID, audit.ActionExport, audit.EntityProject, projectID, err.Error()))
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "export project"))
		return
	}

	s.recordEvent(audit.NewEvent(projectID, audit.ActionExport, audit.EntityProject, projectID, audit.StatusSuccess))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", projectID+".tara.json"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		s.log.Error("writing export response failed", logging.Error(err))
	}
}

// getProjectHistory serves the project's own append-only history log,
// newest entry first.
func (s *Server) getProjectHistory(w http.ResponseWriter, r *http.Request, projectID string) {
	stored, err := s.store.Get(r.Context(), projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	limit := queryLimit(r, 100)
	entries := stored.Project.History
	page := make([]*model.HistoryEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(page) < limit; i-- {
		page = append(page, entries[i])
	}

	s.respondJSON(w, http.StatusOK, ProjectHistoryResponse{
		Entries: page,
		Count:   len(page),
		Total:   len(entries),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).
		Get(func() { s.getHistory(w, r) }).
		NotAllowed()
}

// getHistory serves the host-side event log with optional filters. The
// query API needs the in-memory log; deployments recording straight to
// a persistent log query it through the audit exporter instead.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyLog == nil {
		s.respondError(w, http.StatusNotImplemented, "History queries are not available on this recorder")
		return
	}

	q := r.URL.Query()
	filter := &audit.Filter{
		ProjectID:  q.Get("project"),
		Actor:      q.Get("actor"),
		Action:     audit.Action(q.Get("action")),
		EntityType: audit.EntityType(q.Get("entity_type")),
		EntityID:   q.Get("entity_id"),
		Status:     audit.Status(q.Get("status")),
	}

	events := s.historyLog.GetEvents(filter)
	if limit := queryLimit(r, 100); len(events) > limit {
		events = events[len(events)-limit:]
	}

	s.respondJSON(w, http.StatusOK, HistoryResponse{
		Events: events,
		Count:  len(events),
	})
}

// getReport renders one of the read-only documentation formats. Reports
// recalculate internally and never touch the stored snapshot.
func (s *Server) getReport(w http.ResponseWriter, r *http.Request, projectID, kind string) {
	stored, err := s.store.Get(r.Context(), projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	var (
		contentType string
		render      func(io.Writer, *model.Project) error
	)
	switch kind {
	case "register.csv":
		contentType = "text/csv; charset=utf-8"
		render = s.reports.RiskRegisterCSV
	case "register.md":
		contentType = "text/markdown; charset=utf-8"
		render = s.reports.RiskRegisterMarkdown
	case "attack-paths.md":
		contentType = "text/markdown; charset=utf-8"
		render = s.reports.AttackPathReport
	case "trees.dot":
		contentType = "text/vnd.graphviz; charset=utf-8"
		render = s.reports.AttackTreeDOT
	default:
		s.respondError(w, http.StatusNotFound, "Unknown report kind")
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, stored.Project); err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "render report"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Error("writing report response failed", logging.Error(err))
	}
}

// queryLimit parses the limit query parameter with a default ceiling.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
