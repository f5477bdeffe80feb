package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/iwvelando/sip-forecast/internal/optimizer"
	"github.com/iwvelando/sip-forecast/internal/site"
	"github.com/iwvelando/sip-forecast/pkg/chart"
	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/format"
	"github.com/iwvelando/sip-forecast/pkg/optimization"
	"github.com/iwvelando/sip-forecast/pkg/share"
	"github.com/iwvelando/sip-forecast/pkg/urlstate"
	"go.uber.org/zap"
)

// pageTemplates maps each served page to its template.
var pageTemplates = map[string]string{
	site.PathCalculator: "calculator.html",
	site.PathGuide:      "guide.html",
	site.PathContact:    "article.html",
}

// chrome is the part of every page rendered by the shared header and footer.
type chrome struct {
	Title   string
	Nav     []site.NavLink
	Footer  site.Footer
	Version string
}

type inputView struct {
	Name  string
	Label string
	Value string
	Min   string
	Max   string
	Step  string
}

type summaryView struct {
	Invested    string `json:"invested"`
	Returns     string `json:"returns"`
	FinalValue  string `json:"finalValue"`
	RealValue   string `json:"realValue"`
	InflationOn bool   `json:"inflationOn"`
}

type goalView struct {
	Heading      string
	Answer       string
	Target       string
	FutureTarget string
	Status       string
	Notes        []string
}

type rowView struct {
	Year     int
	Invested string
	Returns  string
	Total    string
	Real     string
}

type calculatorPage struct {
	chrome
	State      urlstate.State
	StepUpRate bool
	Inputs     map[string]inputView
	Summary    summaryView
	Goal       *goalView
	Rows       []rowView
	Donut      chart.Config
	Line       chart.Config
	Share      share.Links
	Query      string
	ReportLink template.URL
	ExportLink template.URL
	Warnings   []string
	FAQ        []site.FAQEntry
}

type guideRow struct {
	Years     int
	Nominal   string
	Inflation string
}

type guidePage struct {
	chrome
	Article site.Article
	Rows    []guideRow
}

type articlePage struct {
	chrome
	Article site.Article
}

func (h *handler) handlePage(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePage"
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	path := site.NormalizePath(r.URL.Path)
	name, ok := pageTemplates[path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if path == site.PathCalculator && r.URL.Query().Has(urlstate.ParamNudge) {
		h.redirectNudged(w, r)
		return
	}

	var data interface{}
	var err error
	switch path {
	case site.PathCalculator:
		data, err = h.calculatorData(r)
	case site.PathGuide:
		data, err = h.guideData(r)
	default:
		data, err = h.articleData(r, path)
	}
	if err != nil {
		h.requestLogger(r).Error("failed to prepare page",
			zap.String("op", op),
			zap.String("path", path),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.requestLogger(r).Error("failed to render page",
			zap.String("op", op),
			zap.String("template", name),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		h.requestLogger(r).Warn("failed to write page", zap.String("op", op), zap.Error(err))
	}
}

// redirectNudged applies a stepper button press from the form and redirects to
// the resulting canonical query, so the address bar never keeps the press.
func (h *handler) redirectNudged(w http.ResponseWriter, r *http.Request) {
	state := h.decodeState(r)
	if nudged, ok := urlstate.Nudge(state, h.controls, r.URL.Query().Get(urlstate.ParamNudge)); ok {
		state = nudged
	}
	target := site.PathCalculator + "?" + urlstate.Encode(state, h.controls).Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *handler) pageChrome(r *http.Request, title string) chrome {
	return chrome{
		Title:   title,
		Nav:     site.Nav(r.URL.Path),
		Footer:  site.FooterAt(h.now()),
		Version: h.version,
	}
}

func (h *handler) calculatorData(r *http.Request) (calculatorPage, error) {
	state := h.decodeState(r)
	snap, err := h.compute(r, state)
	if err != nil {
		return calculatorPage{}, err
	}
	grouping := h.groupingFor(r)

	links, err := share.Build(h.pageURL(r, site.PathCalculator))
	if err != nil {
		return calculatorPage{}, err
	}

	page := calculatorPage{
		chrome:     h.pageChrome(r, "SIP Calculator with Inflation & Step Up"),
		State:      state,
		StepUpRate: state.StepUpMode == finance.StepUpPercentage,
		Inputs:     inputViews(h.controls, state),
		Summary:    summarize(snap.Result, grouping),
		Rows:       growthRows(snap.Result, grouping),
		Donut:      snap.Donut,
		Line:       snap.Line,
		Share:      links,
		Query:      snap.Query,
		ReportLink: template.URL("/api/report.pdf?" + snap.Query),
		ExportLink: template.URL("/api/scenario.yaml?" + snap.Query),
		Warnings:   snap.Warnings,
		FAQ:        h.faq,
	}
	if snap.Goal != nil {
		page.Goal = describeGoal(*snap.Goal, grouping)
	}
	return page, nil
}

func (h *handler) guideData(r *http.Request) (guidePage, error) {
	article, _, err := site.ArticleFor(site.PathGuide)
	if err != nil {
		return guidePage{}, err
	}
	page := guidePage{
		chrome:  h.pageChrome(r, article.Title),
		Article: article,
	}

	grouping := h.groupingFor(r)
	const target = 10000000
	base := finance.ProjectionParams{
		AnnualReturnRate: 0.12,
		StepUp:           finance.StepUp{Mode: finance.StepUpAmount},
	}
	for _, years := range []int{5, 10, 15, 20, 25, 30} {
		nominal := base
		nominal.HorizonYears = years
		inflated := nominal
		inflated.Inflation = finance.Inflation{Enabled: true, AnnualRate: 0.06}

		page.Rows = append(page.Rows, guideRow{
			Years:     years,
			Nominal:   contributionDisplay(h.solver.RequiredContribution(nominal, target), grouping),
			Inflation: contributionDisplay(h.solver.RequiredContribution(inflated, target), grouping),
		})
	}
	return page, nil
}

func (h *handler) articleData(r *http.Request, path string) (articlePage, error) {
	article, _, err := site.ArticleFor(path)
	if err != nil {
		return articlePage{}, err
	}
	return articlePage{chrome: h.pageChrome(r, article.Title), Article: article}, nil
}

func contributionDisplay(result optimizer.ContributionResult, grouping string) string {
	if result.Status == optimizer.StatusNotApplicable {
		return result.Display()
	}
	return format.RupeesWith(result.Contribution, grouping)
}

func inputViews(set controls.Set, state urlstate.State) map[string]inputView {
	view := func(name, label string, c controls.Control, value float64) inputView {
		return inputView{
			Name:  name,
			Label: label,
			Value: c.Format(value),
			Min:   c.Format(c.Min),
			Max:   c.Format(c.Max),
			Step:  c.Format(c.Step),
		}
	}

	stepUp := view(urlstate.ParamStepUp, "Annual step-up (₹)", set.StepUpAmount, state.StepUpAmount)
	if state.StepUpMode == finance.StepUpPercentage {
		stepUp = view(urlstate.ParamStepUp, "Annual step-up (%)", set.StepUpRate, state.StepUpRate)
	}

	return map[string]inputView{
		"sip":           view(urlstate.ParamSIP, "Monthly SIP (₹)", set.SIP, state.SIP),
		"lumpsum":       view(urlstate.ParamLumpsum, "Lump sum (₹)", set.Lumpsum, state.Lumpsum),
		"stepUp":        stepUp,
		"returns":       view(urlstate.ParamReturns, "Expected return (% p.a.)", set.Returns, state.Returns),
		"period":        view(urlstate.ParamPeriod, "Investment period (years)", set.Period, state.Period),
		"inflationRate": view(urlstate.ParamInflationRate, "Inflation (% p.a.)", set.InflationRate, state.InflationRate),
		"target":        view(urlstate.ParamTarget, "Goal in today's money (₹)", set.Target, state.Target),
	}
}

func summarize(result finance.ProjectionResult, grouping string) summaryView {
	return summaryView{
		Invested:    format.RupeesWith(result.TotalInvested, grouping),
		Returns:     format.RupeesWith(result.TotalReturns, grouping),
		FinalValue:  format.RupeesWith(result.FinalValue, grouping),
		RealValue:   format.RupeesWith(result.RealValue, grouping),
		InflationOn: result.InflationAdjusted,
	}
}

func growthRows(result finance.ProjectionResult, grouping string) []rowView {
	rows := make([]rowView, 0, len(result.Series))
	for _, row := range result.Series {
		rows = append(rows, rowView{
			Year:     row.Year,
			Invested: format.RupeesWith(row.CumulativeInvested, grouping),
			Returns:  format.RupeesWith(row.CumulativeReturns, grouping),
			Total:    format.RupeesWith(row.TotalValue, grouping),
			Real:     format.RupeesWith(row.RealValue, grouping),
		})
	}
	return rows
}

func describeGoal(summary optimization.Summary, grouping string) *goalView {
	view := &goalView{
		Heading:      "Required monthly SIP",
		Answer:       summary.ValueDisplay,
		Target:       format.RupeesWith(summary.Target, grouping),
		FutureTarget: format.RupeesWith(summary.FutureTarget, grouping),
		Status:       summary.Status,
		Notes:        summary.Notes,
	}
	if summary.Field == "horizonYears" {
		view.Heading = "Time to reach your goal"
	} else if summary.Status == string(optimizer.StatusSolved) {
		view.Answer = format.RupeesWith(summary.Value, grouping)
	}
	return view
}
