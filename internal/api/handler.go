package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/towerroot/internal/config"
	"github.com/gyaneshwarpardhi/towerroot/internal/engine"
	"github.com/gyaneshwarpardhi/towerroot/internal/input"
	"github.com/gyaneshwarpardhi/towerroot/internal/metrics"
	"github.com/gyaneshwarpardhi/towerroot/internal/report"
)

const (
	maxBatchSize = 100
	maxBodyBytes = 8 << 20
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	reg    *report.Registry
	mux    *http.ServeMux
}

// sortRequest is the JSON body of a sort call.
type sortRequest struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader, reg *report.Registry) http.Handler {
	h := &Handler{eng: eng, loader: loader, reg: reg, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/sort", h.sort)
	h.mux.HandleFunc("POST /v1/sort/batch", h.sortBatch)
	h.mux.HandleFunc("GET /v1/tree", h.tree)
	h.mux.HandleFunc("GET /v1/tree/root", h.treeRoot)
	h.mux.HandleFunc("POST /v1/tree/reload", h.reloadTree)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/sort: synchronous sort of one input.
// Accepts text/plain (one node per line) or JSON {"name", "lines"}.
func (h *Handler) sort(w http.ResponseWriter, r *http.Request) {
	format := formatParam(r)
	rd, err := h.reg.Get(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var b *input.Batch
	if isJSON(r) {
		var req sortRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
			return
		}
		b = input.NewBatch(req.Name, input.Normalize(req.Lines))
	} else {
		b, err = input.Read(r.URL.Query().Get("name"), r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	b.ReceivedAt = time.Now()

	res, err := h.eng.SortSync(r.Context(), b)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if res.Err != nil {
		writeFailure(w, res.Err)
		return
	}
	if format == "json" {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeRendered(w, rd, res.Report)
}

// POST /v1/sort/batch: up to 100 inputs, one result each.
func (h *Handler) sortBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var reqs []sortRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one input")
		return
	}
	if len(reqs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(reqs), maxBatchSize))
		return
	}

	batches := make([]*input.Batch, len(reqs))
	for i, req := range reqs {
		batches[i] = input.NewBatch(req.Name, input.Normalize(req.Lines))
	}
	results := h.eng.SortBatch(r.Context(), batches)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   len(results),
		"failed":  failed,
		"results": results,
	})
}

// GET /v1/tree: the currently loaded tree.
func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	rd, err := h.reg.Get(formatParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.eng.Current()
	if err != nil {
		writeFailure(w, err)
		return
	}
	if rd.Format() == "json" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"snapshot_id": s.ID,
			"loaded_at":   s.LoadedAt,
			"report":      s.Report(),
		})
		return
	}
	writeRendered(w, rd, s.Report())
}

// GET /v1/tree/root: just the root of the loaded tree.
func (h *Handler) treeRoot(w http.ResponseWriter, r *http.Request) {
	s, err := h.eng.Current()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"root":  s.Order.Root(),
		"nodes": s.Graph.Len(),
	})
}

// POST /v1/tree/reload: re-read the configured input file.
func (h *Handler) reloadTree(w http.ResponseWriter, r *http.Request) {
	path := h.loader.Config().Input.Path
	s, err := h.eng.Reload(r.Context(), path)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"snapshot_id": s.ID,
		"root":        s.Order.Root(),
		"nodes":       s.Graph.Len(),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if no tree is loaded or the sort queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if _, err := h.eng.Current(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "loading",
			"queue_utilization": util,
		})
		return
	}
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func formatParam(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	return "json"
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeRendered(w http.ResponseWriter, rd report.Renderer, rep *report.Report) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = rd.Render(w, rep)
}
