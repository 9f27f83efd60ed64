package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/quickmark/internal/exporter"
	"github.com/nikbrunner/quickmark/internal/importer"
	"github.com/nikbrunner/quickmark/internal/library"
	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/merge"
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/nikbrunner/quickmark/internal/notify"
	"github.com/nikbrunner/quickmark/internal/tags"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 32 << 20

type handlers struct {
	Deps
}

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
}

type addResponse struct {
	Outcome  string       `json:"outcome"`
	Bookmark model.Record `json:"bookmark"`
}

type removeResponse struct {
	Removed bool `json:"removed"`
}

type tagResponse struct {
	Affected int `json:"affected"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type importResponse struct {
	Kind  string      `json:"kind"`
	Stats merge.Stats `json:"stats"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, healthzResponse{
		Status:        "ok",
		UptimeSeconds: h.TimeNow().Sub(h.StartTime).Seconds(),
		Version:       h.Version,
	})
}

func (h *handlers) listBookmarks(w http.ResponseWriter, r *http.Request) {
	found, err := h.Library.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *handlers) addBookmark(w http.ResponseWriter, r *http.Request) {
	var cand model.Candidate
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&cand); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	record, outcome, err := h.Library.Add(r.Context(), cand)
	h.Notifier.Notify(notify.AddOutcome(outcome, err))
	if err != nil {
		h.fail(w, err)
		return
	}

	status := http.StatusCreated
	if outcome == merge.DuplicateSkipped {
		status = http.StatusOK
	}
	writeJSON(w, status, addResponse{Outcome: outcome.String(), Bookmark: record})
}

func (h *handlers) removeBookmarkByURL(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing url parameter"})
		return
	}

	removed, err := h.Library.RemoveURL(r.Context(), target)
	h.respondRemoved(w, removed, err)
}

func (h *handlers) removeBookmark(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Library.Remove(r.Context(), pathParam(r, "id"))
	h.respondRemoved(w, removed, err)
}

func (h *handlers) respondRemoved(w http.ResponseWriter, removed bool, err error) {
	h.Notifier.Notify(notify.RemoveOutcome(removed, err))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notify.MsgNotBookmarked})
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Removed: true})
}

func (h *handlers) listTags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Library.Tags(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if counts == nil {
		counts = []tags.Count{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *handlers) deleteTag(w http.ResponseWriter, r *http.Request) {
	affected, err := h.Library.DeleteTag(r.Context(), pathParam(r, "tag"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tagResponse{Affected: affected})
}

func (h *handlers) renameTag(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	affected, err := h.Library.RenameTag(r.Context(), pathParam(r, "tag"), strings.TrimSpace(req.Name))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tagResponse{Affected: affected})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Library.Stats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// export serves the collection as a download. full=1 exports the state
// envelope, format=html the Netscape file.
func (h *handlers) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.TimeNow()
	query := r.URL.Query()

	var (
		kind        exporter.Kind
		data        []byte
		contentType = "application/json"
		err         error
	)
	switch {
	case query.Get("format") == "html":
		kind = exporter.KindHTML
		contentType = "text/html; charset=utf-8"
		var c model.Collection
		if c, err = h.Library.Load(ctx); err == nil {
			data = []byte(exporter.ExportHTML(c))
		}
	case isTruthy(query.Get("full")):
		kind = exporter.KindState
		var state model.State
		if state, err = h.Library.State(ctx); err == nil {
			data, err = exporter.ExportState(state, now)
		}
	default:
		kind = exporter.KindJSON
		var c model.Collection
		if c, err = h.Library.Load(ctx); err == nil {
			data, err = exporter.ExportJSON(c)
		}
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exporter.FileName(kind, now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handlers) importDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := importer.ParseDocument(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.Notifier.Notify(notify.MsgImportFailed)
		h.fail(w, err)
		return
	}

	result, err := h.Library.ImportDocument(r.Context(), doc)
	if err != nil {
		h.Notifier.Notify(notify.MsgImportFailed)
		h.fail(w, err)
		return
	}

	h.Notifier.Notify(notify.ImportSummary(result.Stats))
	writeJSON(w, http.StatusOK, importResponse{Kind: result.Kind.String(), Stats: result.Stats})
}

// fail maps err to a status code and writes it as a JSON error.
func (h *handlers) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, importer.ErrMalformedDocument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrInvalidURL), errors.Is(err, model.ErrEmptyTitle):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, library.ErrPersistence):
		msg = "storage unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// pathParam returns an unescaped URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
