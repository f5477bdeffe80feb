package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/forecast"
	"github.com/iwvelando/sip-forecast/internal/metrics"
	"github.com/iwvelando/sip-forecast/internal/site"
	"github.com/iwvelando/sip-forecast/pkg/chart"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/optimization"
	"github.com/iwvelando/sip-forecast/pkg/output"
	"github.com/iwvelando/sip-forecast/pkg/share"
	"github.com/iwvelando/sip-forecast/pkg/urlstate"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultScenarioName = "Calculator"

type projectionResponse struct {
	Query    string                   `json:"query"`
	State    urlstate.State           `json:"state"`
	Params   finance.ProjectionParams `json:"params"`
	Result   finance.ProjectionResult `json:"result"`
	Summary  summaryView              `json:"summary"`
	Goal     *optimization.Summary    `json:"goal,omitempty"`
	Donut    chart.Config             `json:"donut"`
	Line     chart.Config             `json:"line"`
	Share    share.Links              `json:"share"`
	Warnings []string                 `json:"warnings,omitempty"`
}

func (h *handler) handleProjection(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProjection"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	state := h.decodeState(r)
	snap, err := h.compute(r, state)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, fmt.Sprintf("calculation aborted: %v", err), op)
		return
	}
	links, err := share.Build(h.pageURL(r, site.PathCalculator))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to build share links: %v", err), op)
		return
	}

	h.writeJSON(w, r, http.StatusOK, projectionResponse{
		Query:    snap.Query,
		State:    snap.State,
		Params:   snap.Params,
		Result:   snap.Result,
		Summary:  summarize(snap.Result, h.groupingFor(r)),
		Goal:     snap.Goal,
		Donut:    snap.Donut,
		Line:     snap.Line,
		Share:    links,
		Warnings: snap.Warnings,
	})
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleReport"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	state := h.decodeState(r)
	snap, err := h.compute(r, state)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, fmt.Sprintf("calculation aborted: %v", err), op)
		return
	}

	result := forecast.Forecast{
		Name:   scenarioName(r),
		Params: snap.Params,
		Result: snap.Result,
		Goal:   snap.Goal,
		Notes:  snap.Warnings,
	}
	if snap.Goal != nil {
		result.Notes = append(result.Notes, snap.Goal.Notes...)
	}

	pdf, err := output.PDFReport([]forecast.Forecast{result}, h.groupingFor(r))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render report: %v", err), op)
		return
	}
	h.metrics.CountCalculation(metrics.KindReport)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="sip-projection.pdf"`)
	if _, err := w.Write(pdf); err != nil {
		h.requestLogger(r).Warn("failed to write report", zap.String("op", op), zap.Error(err))
	}
}

// handleScenarioExport converts the calculator state into a scenarios file
// that the CLI and the upload endpoint accept.
func (h *handler) handleScenarioExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleScenarioExport"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	state := h.decodeState(r)
	scenario := config.FromParams(scenarioName(r), state.Params())
	if state.IsGoal() {
		scenario.Goal = &config.GoalConfig{Mode: string(state.GoalSubMode), Target: state.Target}
	}

	doc := config.Configuration{
		Output:    config.OutputConfig{Grouping: h.groupingFor(r)},
		Scenarios: []config.Scenario{scenario},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to encode scenario: %v", err), op)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="sip-scenario.yaml"`)
	if _, err := w.Write(data); err != nil {
		h.requestLogger(r).Warn("failed to write scenario", zap.String("op", op), zap.Error(err))
	}
}

func scenarioName(r *http.Request) string {
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		return name
	}
	return defaultScenarioName
}
