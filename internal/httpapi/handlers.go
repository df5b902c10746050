package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/huynle/brain/internal/resolver"
	"github.com/huynle/brain/internal/taskstore"
)

// Handler serves the task-query, entry-section, and MCP-transport endpoints
// under base path /api/v1 (spec §6 "HTTP API (base /api/v1)"), grounded on
// the teacher's APIHandler / NewRouter split in
// internal/delivery/server/http/{api_handler.go,router.go}.
type Handler struct {
	tasks  *taskstore.Service
	logger *slog.Logger
}

// New constructs a Handler.
func New(tasks *taskstore.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{tasks: tasks, logger: logger}
}

// HandleListProjects implements "GET /tasks" (spec §6).
func (h *Handler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.tasks.ListProjects()
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// HandleProjectTasks implements "GET /tasks/<project>" (spec §6): all tasks
// for the project, classified.
func (h *Handler) HandleProjectTasks(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	result, err := h.tasks.Classified(r.Context(), project)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classifiedResponse(result))
}

// HandleProjectSelection implements "GET /tasks/<project>/ready|waiting|blocked|next".
func (h *Handler) HandleProjectSelection(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	selection := r.PathValue("selection")

	result, err := h.tasks.Classified(r.Context(), project)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	switch selection {
	case "ready":
		writeJSON(w, http.StatusOK, map[string]any{"tasks": resolver.Ready(result.Tasks)})
	case "waiting":
		writeJSON(w, http.StatusOK, map[string]any{"tasks": resolver.Waiting(result.Tasks)})
	case "blocked":
		writeJSON(w, http.StatusOK, map[string]any{"tasks": resolver.Blocked(result.Tasks)})
	case "next":
		next := resolver.Next(result.Tasks)
		if next == nil {
			writeJSON(w, http.StatusOK, map[string]any{"task": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"task": next})
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown selection: "+selection)
	}
}

func classifiedResponse(result resolver.DependencyResult) map[string]any {
	return map[string]any{
		"tasks":  result.Tasks,
		"cycles": result.Cycles,
		"stats":  result.Stats,
	}
}

// HandleEntry dispatches "GET /api/v1/entries/<id-or-path>/sections" and
// "GET /api/v1/entries/<id-or-path>/sections/<url-encoded-title>" (spec §6).
// The
// id-or-path segment can itself contain slashes, so routing is done by hand
// rather than with a mux wildcard, which in Go's net/http router may only
// appear as the final path segment.
func (h *Handler) HandleEntry(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/v1/entries/")
	segments := strings.Split(trimmed, "/")

	sectionsAt := -1
	for i, seg := range segments {
		if seg == "sections" {
			sectionsAt = i
			break
		}
	}
	if sectionsAt <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "expected /entries/<id-or-path>/sections")
		return
	}
	idOrPath := strings.Join(segments[:sectionsAt], "/")
	rest := segments[sectionsAt+1:]

	path, err := h.tasks.ResolveEntryPath(r.Context(), idOrPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	body, err := taskstore.Body(path)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	switch len(rest) {
	case 0:
		writeJSON(w, http.StatusOK, map[string]any{"sections": ExtractSections(body)})
	case 1:
		title := rest[0]
		includeSubsections, _ := strconv.ParseBool(r.URL.Query().Get("includeSubsections"))
		section, ok := SectionBody(body, title, includeSubsections)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "no section titled "+title)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"title": title, "body": section})
	default:
		writeError(w, http.StatusNotFound, "not_found", "expected /entries/<id-or-path>/sections[/<title>]")
	}
}
