package server

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/metrics"
	"github.com/iwvelando/sip-forecast/internal/site"
	"github.com/iwvelando/sip-forecast/pkg/chart"
	"github.com/iwvelando/sip-forecast/pkg/constants"
	"go.uber.org/zap"
)

// referenceQuery is ₹10,000 a month at 12% for 10 years without step-up.
const referenceQuery = "sip=10000&returns=12&period=10&stepUpMode=amount&stepUp=0"

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	clock := func() time.Time { return time.Date(2031, time.January, 2, 0, 0, 0, 0, time.UTC) }
	return NewHandler(zap.NewNop(), DefaultConfig(), "1.2.3", append([]Option{WithClock(clock)}, opts...)...)
}

func get(t *testing.T, handler http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func getDocument(t *testing.T, handler http.Handler, target string) *goquery.Document {
	t.Helper()
	rr := get(t, handler, target, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s: expected status 200, got %d: %s", target, rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("GET %s: expected HTML, got %q", target, ct)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestCalculatorPage(t *testing.T) {
	handler := newTestHandler(t)
	doc := getDocument(t, handler, "/?"+referenceQuery)

	if got := strings.TrimSpace(doc.Find("#final-value").Text()); got != "₹23,00,387" {
		t.Fatalf("expected final value ₹23,00,387, got %q", got)
	}
	if got := strings.TrimSpace(doc.Find("#total-invested").Text()); got != "₹12,00,000" {
		t.Fatalf("expected invested ₹12,00,000, got %q", got)
	}
	if doc.Find("#real-value").Length() != 0 {
		t.Fatal("real value should be hidden when inflation is off")
	}
	if rows := doc.Find("#growth-table tbody tr").Length(); rows != 10 {
		t.Fatalf("expected 10 growth rows, got %d", rows)
	}
	if doc.Find("#goal-result").Length() != 0 {
		t.Fatal("goal block should not render in wealth mode")
	}

	active := doc.Find(`#site-nav a[aria-current="page"]`)
	if active.Length() != 1 || strings.TrimSpace(active.Text()) != "Calculator" {
		t.Fatalf("expected Calculator to be the active link, got %d links (%q)", active.Length(), active.Text())
	}
	if got := strings.TrimSpace(doc.Find("#copyright").Text()); !strings.Contains(got, "2031") {
		t.Fatalf("expected footer year 2031, got %q", got)
	}

	entries, err := site.FAQ()
	if err != nil {
		t.Fatalf("FAQ() error = %v", err)
	}
	if got := doc.Find(".faq-question-button").Length(); got != len(entries) {
		t.Fatalf("expected %d FAQ entries, got %d", len(entries), got)
	}

	whatsapp, _ := doc.Find("#share-whatsapp").Attr("href")
	if !strings.HasPrefix(whatsapp, "https://api.whatsapp.com/send?text=") {
		t.Fatalf("unexpected WhatsApp link %q", whatsapp)
	}
	if !strings.Contains(whatsapp, "http%3A%2F%2Fexample.com%2F") {
		t.Fatalf("expected clean page URL in WhatsApp link, got %q", whatsapp)
	}

	pdfLink, _ := doc.Find("#download-pdf").Attr("href")
	if !strings.HasPrefix(pdfLink, "/api/report.pdf?") || !strings.Contains(pdfLink, "sip=10000") || !strings.Contains(pdfLink, "&") {
		t.Fatalf("unexpected report link %q", pdfLink)
	}

	var donut chart.Config
	if err := json.Unmarshal([]byte(doc.Find("#donut-data").Text()), &donut); err != nil {
		t.Fatalf("failed to decode donut data: %v", err)
	}
	if donut.Type != chart.TypeDoughnut || len(donut.Data.Datasets) != 1 {
		t.Fatalf("unexpected donut config %+v", donut)
	}
	if got := donut.Data.Datasets[0].Data[0]; got != 1200000 {
		t.Fatalf("expected invested slice 1200000, got %v", got)
	}

	var line chart.Config
	if err := json.Unmarshal([]byte(doc.Find("#line-data").Text()), &line); err != nil {
		t.Fatalf("failed to decode line data: %v", err)
	}
	if len(line.Data.Labels) != 10 {
		t.Fatalf("expected 10 line labels, got %d", len(line.Data.Labels))
	}
}

func TestCalculatorPageStepperButtons(t *testing.T) {
	handler := newTestHandler(t)

	doc := getDocument(t, handler, "/?"+referenceQuery)
	for _, press := range []string{"sip:up", "sip:down", "returns:up", "stepUp:down"} {
		if doc.Find(`button[name="nudge"][value="`+press+`"]`).Length() != 1 {
			t.Errorf("expected a stepper button for %s", press)
		}
	}

	rr := get(t, handler, "/?"+referenceQuery+"&nudge=sip:up", nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after a stepper press, got %d", rr.Code)
	}
	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("invalid redirect location: %v", err)
	}
	query := location.Query()
	if location.Path != "/" || query.Has("nudge") {
		t.Fatalf("unexpected redirect %s", location)
	}
	if got := query.Get("sip"); got != "10500" {
		t.Fatalf("expected sip stepped to 10500, got %q", got)
	}
	if got := query.Get("returns"); got != "12.0" {
		t.Fatalf("expected other fields kept, got returns %q", got)
	}

	doc = getDocument(t, handler, location.String())
	if v, _ := doc.Find(`input[name="sip"]`).Attr("value"); v != "10500" {
		t.Fatalf("expected stepped SIP on the page, got %q", v)
	}

	rr = get(t, handler, "/?sip=1000000&nudge=sip:up", nil)
	location, _ = url.Parse(rr.Header().Get("Location"))
	if got := location.Query().Get("sip"); got != "1000000" {
		t.Fatalf("expected stepper to stop at the maximum, got %q", got)
	}

	rr = get(t, handler, "/?sip=7000&nudge=bogus", nil)
	location, _ = url.Parse(rr.Header().Get("Location"))
	if rr.Code != http.StatusSeeOther || location.Query().Get("sip") != "7000" {
		t.Fatalf("expected an unknown press to redirect unchanged, got %d %s", rr.Code, location)
	}
}

func TestCalculatorPageInputsClampedAndPrefilled(t *testing.T) {
	handler := newTestHandler(t)
	doc := getDocument(t, handler, "/index.html?sip=5&period=abc&lumpsumOn=true&lumpsum=50000&inflation=true&inflationRate=99")

	value := func(name string) string {
		v, _ := doc.Find(`input[name="` + name + `"]`).Attr("value")
		return v
	}
	if got := value("sip"); got != "500" {
		t.Fatalf("expected SIP clamped to 500, got %q", got)
	}
	if got := value("period"); got != "10" {
		t.Fatalf("expected malformed period to keep default 10, got %q", got)
	}
	if got := value("lumpsum"); got != "50000" {
		t.Fatalf("expected lump sum 50000, got %q", got)
	}
	if got := value("inflationRate"); got != "15.0" {
		t.Fatalf("expected inflation clamped to 15.0, got %q", got)
	}
	if _, checked := doc.Find(`input[name="inflation"]`).Attr("checked"); !checked {
		t.Fatal("expected inflation checkbox to be checked")
	}
	if doc.Find("#real-value").Length() != 1 {
		t.Fatal("expected real value with inflation on")
	}
	if active := doc.Find(`#site-nav a[aria-current="page"]`).Text(); strings.TrimSpace(active) != "Calculator" {
		t.Fatalf("/index.html should mark Calculator active, got %q", active)
	}
}

func TestCalculatorPageGoalModes(t *testing.T) {
	handler := newTestHandler(t)

	doc := getDocument(t, handler, "/?mode=goal&goalSubMode=time&sip=25000&returns=12&stepUpMode=amount&stepUp=0&target=10000000")
	answer := strings.TrimSpace(doc.Find("#goal-answer").Text())
	if !strings.HasSuffix(answer, "Years") {
		t.Fatalf("expected a number of years, got %q", answer)
	}
	if heading := doc.Find("#goal-result h2").Text(); heading != "Time to reach your goal" {
		t.Fatalf("unexpected goal heading %q", heading)
	}

	doc = getDocument(t, handler, "/?mode=goal&goalSubMode=time&sip=500&returns=1&stepUp=0&target=1000000000&inflation=true&inflationRate=15")
	if answer := strings.TrimSpace(doc.Find("#goal-answer").Text()); answer != "100+ Years" {
		t.Fatalf("expected 100+ Years, got %q", answer)
	}

	doc = getDocument(t, handler, "/?mode=goal&goalSubMode=sip&period=10&returns=12&stepUpMode=amount&stepUp=0&target=2300387")
	answer = strings.TrimSpace(doc.Find("#goal-answer").Text())
	if answer != "₹10,000" {
		t.Fatalf("expected required SIP close to ₹10,000, got %q", answer)
	}
}

func TestContentPages(t *testing.T) {
	handler := newTestHandler(t)

	doc := getDocument(t, handler, site.PathGuide)
	if rows := doc.Find("#crore-table tbody tr").Length(); rows != 6 {
		t.Fatalf("expected 6 guide rows, got %d", rows)
	}
	first := doc.Find("#crore-table tbody tr").First().Find("td")
	if nominal, inflated := first.Eq(1).Text(), first.Eq(2).Text(); nominal == inflated || !strings.HasPrefix(nominal, "₹") {
		t.Fatalf("expected distinct nominal and inflation-adjusted SIPs, got %q and %q", nominal, inflated)
	}
	if active := doc.Find(`#site-nav a[aria-current="page"]`).AttrOr("href", ""); active != site.PathGuide {
		t.Fatalf("expected guide link active, got %q", active)
	}

	doc = getDocument(t, handler, site.PathContact)
	if h1 := doc.Find("article h1").Text(); h1 != "Contact us and legal" {
		t.Fatalf("unexpected contact title %q", h1)
	}

	if rr := get(t, handler, "/missing.html", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown page, got %d", rr.Code)
	}
}

func TestHandleProjection(t *testing.T) {
	handler := newTestHandler(t)

	rr := get(t, handler, "/api/projection?sip=10000&returns=12.04&period=10&stepUpMode=amount&stepUp=0&mode=goal&goalSubMode=sip&target=5000000", map[string]string{
		"Accept-Language": "en-US,en;q=0.8",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp projectionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State.Returns != 12 {
		t.Fatalf("expected returns rounded to one decimal, got %v", resp.State.Returns)
	}
	if !strings.Contains(resp.Query, "mode=goal") || !strings.Contains(resp.Query, "target=5000000") {
		t.Fatalf("expected goal fields in canonical query, got %q", resp.Query)
	}
	if resp.Goal == nil || resp.Goal.Status != "solved" {
		t.Fatalf("expected solved goal, got %+v", resp.Goal)
	}
	if math.Abs(resp.Result.FinalValue-5000000) > 5000000*1e-6 {
		t.Fatalf("expected projection at the target, got %v", resp.Result.FinalValue)
	}
	if !strings.HasPrefix(resp.Summary.FinalValue, "₹5,000,00") {
		t.Fatalf("expected international grouping for en-US, got %q", resp.Summary.FinalValue)
	}
	if resp.Share.URL != "http://example.com/" {
		t.Fatalf("unexpected share URL %q", resp.Share.URL)
	}
}

func TestHandleProjectionPublicURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PublicURL = "https://sip.example.org"
	handler := NewHandler(zap.NewNop(), cfg, "")

	rr := get(t, handler, "/api/projection", nil)
	var resp projectionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Share.URL != "https://sip.example.org/" {
		t.Fatalf("expected public URL in share links, got %q", resp.Share.URL)
	}
	if !strings.Contains(resp.Share.Twitter, "https%3A%2F%2Fsip.example.org%2F") {
		t.Fatalf("unexpected twitter link %q", resp.Share.Twitter)
	}
}

func TestHandleProjectionMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/projection", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "scenarios.yaml")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleForecastSuccess(t *testing.T) {
	handler := newTestHandler(t)

	data, err := os.ReadFile(filepath.Join("..", "..", "test", "test_config.yaml"))
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, uploadRequest(t, data))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp forecastResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Scenarios) != 4 || len(resp.Results) != 4 {
		t.Fatalf("expected 4 active scenarios, got %v", resp.Scenarios)
	}
	if !strings.HasPrefix(resp.CSV, "scenario,year,") {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if resp.Config == nil || resp.ConfigYAML == "" {
		t.Fatal("expected config echo in response")
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", resp.Warnings)
	}
}

func TestHandleForecastErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		handler := newTestHandler(t)
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		if err := writer.WriteField("other", "value"); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("failed to close writer: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp["error"] != "missing configuration file" {
			t.Fatalf("unexpected error body %q (%v)", rr.Body.String(), err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		handler := newTestHandler(t)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, uploadRequest(t, []byte("scenarios: [unterminated")))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("unknown step-up mode", func(t *testing.T) {
		handler := newTestHandler(t)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, uploadRequest(t, []byte(`scenarios:
  - name: broken
    active: true
    monthlyContribution: 1000
    annualReturnRate: 10
    years: 5
    stepUp:
      mode: weekly
`)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("too large", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SetUploadSizeBytes(64)
		handler := NewHandler(zap.NewNop(), cfg, "")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, uploadRequest(t, bytes.Repeat([]byte("#"), 1024)))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", rr.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		handler := newTestHandler(t)
		if rr := get(t, handler, "/api/forecast", nil); rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rr.Code)
		}
	})
}

func TestHandleReport(t *testing.T) {
	handler := newTestHandler(t)
	rr := get(t, handler, "/api/report.pdf?"+referenceQuery+"&name=Retirement", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}

func TestHandleScenarioExportRoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	rr := get(t, handler, "/api/scenario.yaml?sip=15000&returns=11.5&period=20&stepUpMode=rate&stepUp=5&inflation=true&inflationRate=6&mode=goal&goalSubMode=time&target=20000000&name=Exported", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	cfg, err := config.LoadConfigurationFromReader(rr.Body)
	if err != nil {
		t.Fatalf("exported YAML does not load: %v", err)
	}
	if len(cfg.Scenarios) != 1 {
		t.Fatalf("expected one scenario, got %d", len(cfg.Scenarios))
	}
	sc := cfg.Scenarios[0]
	if sc.Name != "Exported" || !sc.Active || sc.MonthlyContribution != 15000 || sc.Years != 20 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if math.Abs(sc.AnnualReturnRate-11.5) > 1e-9 || math.Abs(sc.StepUp.Value-5) > 1e-9 || math.Abs(sc.Inflation.Rate-6) > 1e-9 {
		t.Fatalf("expected percentages preserved, got %+v", sc)
	}
	if sc.Goal == nil || sc.Goal.Mode != config.GoalModeTime || sc.Goal.Target != 20000000 {
		t.Fatalf("unexpected goal %+v", sc.Goal)
	}
	if warnings := cfg.ValidateConfiguration(); len(warnings) != 0 {
		t.Fatalf("exported scenario should validate cleanly, got %v", warnings)
	}
}

func TestHandleVersion(t *testing.T) {
	handler := newTestHandler(t)
	rr := get(t, handler, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}

	if rr := get(t, NewHandler(nil, nil, "  "), "/api/version", nil); !strings.Contains(rr.Body.String(), `"dev"`) {
		t.Fatalf("expected dev version fallback, got %s", rr.Body.String())
	}
}

func TestMetricsAndRequestID(t *testing.T) {
	m := metrics.New()
	handler := newTestHandler(t, WithMetrics(m))

	rr := get(t, handler, "/api/projection?"+referenceQuery, nil)
	generated := rr.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(generated); err != nil {
		t.Fatalf("expected generated UUID request ID, got %q", generated)
	}

	incoming := uuid.NewString()
	rr = get(t, handler, "/api/projection?mode=goal&goalSubMode=time&sip=20000", map[string]string{RequestIDHeader: incoming})
	if got := rr.Header().Get(RequestIDHeader); got != incoming {
		t.Fatalf("expected request ID %q to be echoed, got %q", incoming, got)
	}

	rr = get(t, handler, "/api/projection", map[string]string{RequestIDHeader: "not-a-uuid"})
	if got := rr.Header().Get(RequestIDHeader); got == "not-a-uuid" {
		t.Fatal("invalid request IDs should be replaced")
	}

	rr = get(t, handler, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`sip_forecast_calculations_total{kind="projection"} 2`,
		`sip_forecast_calculations_total{kind="goal_time"} 1`,
		`sip_forecast_http_requests_total{code="200",route="/api/projection"} 3`,
		`sip_forecast_pipeline_stage_duration_seconds_count{stage="compute"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	handler := newTestHandler(t)
	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		rr := get(t, handler, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/":               "/",
		"/index.html":     "/",
		site.PathGuide:    site.PathGuide,
		"/static/app.js":  "/static",
		"/api/projection": "/api/projection",
		"/metrics":        "/metrics",
		"/wp-login.php":   "other",
	}
	for path, want := range tests {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, expected %q", path, got, want)
		}
	}
}

func TestZeroConfigUsesDefaults(t *testing.T) {
	if (&Config{}).UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Fatal("zero config should fall back to the default upload size")
	}

	handler := NewHandler(nil, &Config{}, "")
	doc := getDocument(t, handler, "/?"+referenceQuery)
	if got := strings.TrimSpace(doc.Find("#final-value").Text()); got != "₹23,00,387" {
		t.Fatalf("expected indian grouping by default, got %q", got)
	}
}
