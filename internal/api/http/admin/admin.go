// Package admin serves health, metrics and read-only status over HTTP.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/energy-sim/internal/api/grpc/control"
	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/simulation"
	"github.com/oshokin/energy-sim/internal/version"
)

// Service is the read-only part of the simulation the admin surface exposes.
type Service interface {
	Status(ctx context.Context) (*control.Status, error)
	Aggregate(ctx context.Context, level energy.Level, id string) (*simulation.Snapshot, error)
}

// Handler wires admin endpoints.
type Handler struct {
	service  Service
	gatherer prometheus.Gatherer
}

// New creates a handler serving metrics from gatherer.
func New(service Service, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		service:  service,
		gatherer: gatherer,
	}
}

// Router returns the admin routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/version", h.handleVersion)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/aggregates/{level}/{id}", h.handleAggregate)
	})

	return r
}

// clockResponse is the JSON view of the clock.
type clockResponse struct {
	Running   bool      `json:"running"`
	Seq       uint64    `json:"seq"`
	Interval  string    `json:"interval"`
	StartedAt time.Time `json:"started_at"`
	TopLevel  []string  `json:"top_level"`
	LastTick  *tickView `json:"last_tick,omitempty"`
}

type tickView struct {
	Seq      uint64   `json:"seq"`
	Nations  int      `json:"nations"`
	Failed   []string `json:"failed,omitempty"`
	Duration string   `json:"duration"`
}

// aggregateResponse is the JSON view of an aggregator.
type aggregateResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name,omitempty"`
	Level      energy.Level       `json:"level"`
	ParentID   string             `json:"parent_id,omitempty"`
	Children   []string           `json:"children"`
	Population int64              `json:"population"`
	Total      float64            `json:"total_joules"`
	TotalHuman string             `json:"total"`
	PerCapita  float64            `json:"per_capita_joules"`
	LastSeq    uint64             `json:"last_seq"`
	Partial    bool               `json:"partial"`
	Breakdown  map[string]float64 `json:"breakdown"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)

		return
	}

	resp := clockResponse{
		Running:   st.Clock.Running,
		Seq:       st.Clock.Seq,
		Interval:  st.Clock.Interval.String(),
		StartedAt: st.Clock.StartedAt,
		TopLevel:  st.Clock.TopLevel,
	}

	if tick := st.LastTick; tick != nil {
		view := &tickView{
			Seq:      tick.Seq,
			Nations:  tick.Nations,
			Duration: tick.Duration.String(),
		}

		for _, f := range tick.Failures {
			view.Failed = append(view.Failed, f.ID)
		}

		resp.LastTick = view
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	level := energy.Level(chi.URLParam(r, "level"))
	if !level.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown level " + string(level)})

		return
	}

	snap, err := h.service.Aggregate(r.Context(), level, chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)

		return
	}

	resp := aggregateResponse{
		ID:         snap.State.ID,
		Name:       snap.State.Name,
		Level:      snap.State.Level,
		ParentID:   snap.State.ParentID,
		Children:   snap.State.Children,
		Population: snap.State.Population,
		Total:      snap.Total,
		TotalHuman: energy.FormatJoules(snap.Total),
		PerCapita:  snap.PerCapita,
		Breakdown:  map[string]float64{},
	}

	if last := snap.Last; last != nil {
		resp.LastSeq = last.Seq
		resp.Partial = last.Partial
		resp.Breakdown = last.Breakdown
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, simulation.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		logger.ErrorKV(ctx, "Admin request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
