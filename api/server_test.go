package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/seenimoa/etfdj/internal/config"
	"github.com/seenimoa/etfdj/internal/datasource"
	"github.com/seenimoa/etfdj/internal/report"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// fixtures maps a lowercase page name to its file under the datasource
// package's testdata.
var fixtures = map[string]string{
	"basic0004.xdjhtm": "basic_info.html",
	"basic0007.xdjhtm": "holdings.html",
	"basic0013.xdjhtm": "risk.html",
	"basic0010.xdjhtm": "comparison.html",
	"basic0009.xdjhtm": "trends.html",
	"feed":             "feed.xml",
}

// newUpstream serves the report pages and the feed. Pages named in overrides
// are served from that fixture instead; an empty override answers 503.
func newUpstream(t *testing.T, overrides map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.ToLower(path.Base(r.URL.Path))
		file, ok := fixtures[name]
		if o, found := overrides[name]; found {
			file, ok = o, o != ""
			if !ok {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		body, err := os.ReadFile(filepath.Join("..", "internal", "datasource", "testdata", file))
		if err != nil {
			t.Errorf("read fixture: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testServer(t *testing.T, opts ...datasource.AggregatorOption) *Server {
	t.Helper()
	up := newUpstream(t, nil)
	return testServerFor(t, up, up.URL+"/feed", opts...)
}

func testServerFor(t *testing.T, up *httptest.Server, feedURL string, opts ...datasource.AggregatorOption) *Server {
	t.Helper()
	client := datasource.NewClient(datasource.WithBaseURL(up.URL), datasource.WithRateLimit(0, 0))
	cfg := &config.Config{
		News: config.NewsConfig{FeedURL: feedURL, Limit: 10},
		API:  config.APIConfig{Port: 8080},
	}
	return NewServer(cfg, datasource.NewAggregator(client, opts...), datasource.NewNews(client, feedURL), nil)
}

func do(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// ════════════════════════════════════════════════════════════════════
// APIResponse type tests
// ════════════════════════════════════════════════════════════════════

func TestAPIResponseJSON(t *testing.T) {
	tests := []struct {
		name string
		resp APIResponse
	}{
		{
			name: "success with data",
			resp: APIResponse{Success: true, Data: map[string]string{"key": "value"}},
		},
		{
			name: "error",
			resp: APIResponse{Success: false, Error: "something went wrong"},
		},
		{
			name: "success with nil data",
			resp: APIResponse{Success: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var got APIResponse
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got.Success != tt.resp.Success {
				t.Errorf("Success: got %v, want %v", got.Success, tt.resp.Success)
			}
			if got.Error != tt.resp.Error {
				t.Errorf("Error: got %q, want %q", got.Error, tt.resp.Error)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Handler tests
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t)
	for _, p := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, p)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", p, rec.Code)
		}
		resp := decodeResponse(t, rec)
		data, ok := resp.Data.(map[string]any)
		if !ok || !resp.Success || data["status"] != "ok" || data["news_enabled"] != true {
			t.Errorf("%s: unexpected body %+v", p, resp)
		}
	}
}

func TestGetETF(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, "/api/v1/etf/vti")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                       `json:"success"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"basic_info", "holdings", "risk_analysis", "return_comparison", "return_trends"} {
		if _, ok := resp.Data[key]; !ok {
			t.Errorf("missing %q", key)
		}
	}
	if got := string(resp.Data["ticker"]); got != `"VTI"` {
		t.Errorf("ticker = %s", got)
	}
	if !strings.Contains(string(resp.Data["basic_info"]), `"fund_size":"$300,000"`) {
		t.Errorf("basic_info = %s", resp.Data["basic_info"])
	}
	// The Beta row carries a malformed date, so risk analysis is degraded
	// but keeps its good rows.
	if !strings.Contains(string(resp.Data["errors"]), `"risk_analysis"`) {
		t.Errorf("errors = %s", resp.Data["errors"])
	}
	if !strings.Contains(string(resp.Data["risk_analysis"]), `"rank":142`) {
		t.Errorf("risk_analysis = %s", resp.Data["risk_analysis"])
	}
}

func TestGetETFDegradedSection(t *testing.T) {
	up := newUpstream(t, map[string]string{"basic0009.xdjhtm": ""})
	srv := testServerFor(t, up, "")

	rec := do(t, srv, "/api/v1/etf/VTI")
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded report should still be 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"return_trends":"fetch return_trends for VTI: HTTP 503`) {
		t.Errorf("trends error not recorded: %s", rec.Body.String())
	}
}

func TestGetETFFailFast(t *testing.T) {
	up := newUpstream(t, map[string]string{"basic0004.xdjhtm": ""})
	srv := testServerFor(t, up, "", datasource.WithFailFast(true))

	rec := do(t, srv, "/api/v1/etf/VTI")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
		t.Errorf("unexpected body %+v", resp)
	}
}

func TestGetETFUnknownTicker(t *testing.T) {
	var mu sync.Mutex
	var etfids []string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		etfids = append(etfids, r.URL.Query().Get("etfid"))
		mu.Unlock()
		_, _ = w.Write([]byte("<html><body><p>查無資料</p></body></html>"))
	}))
	t.Cleanup(up.Close)
	srv := testServerFor(t, up, "")

	rec := do(t, srv, "/api/v1/etf/VTI;DROP")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Ticker   string            `json:"ticker"`
			Holdings map[string]any    `json:"holdings"`
			Errors   map[string]string `json:"errors"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Ticker != "VTI;DROP" {
		t.Errorf("ticker = %q", resp.Data.Ticker)
	}
	for _, key := range []string{"holdings_by_region", "holdings_by_sector", "top_holdings"} {
		if v, ok := resp.Data.Holdings[key]; !ok || v != nil {
			t.Errorf("holdings.%s = %v, want null", key, v)
		}
	}
	// Holdings has no required table, the other four do.
	if len(resp.Data.Errors) != 4 {
		t.Errorf("errors = %v, want 4 degraded sections", resp.Data.Errors)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(etfids) != 5 {
		t.Fatalf("upstream saw %d requests, want 5", len(etfids))
	}
	for _, id := range etfids {
		if id != "VTI;DROP" {
			t.Errorf("etfid = %q, want the ticker passed through escaped", id)
		}
	}
}

func TestNewsConcurrentRequests(t *testing.T) {
	srv := testServer(t)

	var wg sync.WaitGroup
	codes := make(chan int, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do(t, srv, "/api/v1/etf/VTI/news").Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("status %d, want 200", code)
		}
	}
}

func TestGetSection(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/v1/etf/VTI/basic", http.StatusOK, `"name":"Vanguard整體股市ETF"`},
		{"/api/v1/etf/VTI/basic_info", http.StatusOK, `"issuer":"Vanguard"`},
		{"/api/v1/etf/VTI/holdings", http.StatusOK, `"name":"Apple Inc"`},
		{"/api/v1/etf/VTI/comparison", http.StatusOK, `"value":"142/859"`},
		{"/api/v1/etf/VTI/trends", http.StatusOK, `"quarterly_return":null`},
		{"/api/v1/etf/VTI/risk", http.StatusUnprocessableEntity, "Beta"},
		{"/api/v1/etf/VTI/dividends", http.StatusNotFound, "unknown section"},
	}
	for _, tt := range tests {
		rec := do(t, srv, tt.path)
		if rec.Code != tt.status {
			t.Errorf("%s: status %d, want %d", tt.path, rec.Code, tt.status)
			continue
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: body missing %s: %s", tt.path, tt.want, rec.Body.String())
		}
	}
}

func TestGetSectionErrors(t *testing.T) {
	up := newUpstream(t, map[string]string{
		"basic0004.xdjhtm": "",
		"basic0010.xdjhtm": "empty.html",
	})
	srv := testServerFor(t, up, "")

	if rec := do(t, srv, "/api/v1/etf/VTI/basic"); rec.Code != http.StatusBadGateway {
		t.Errorf("fetch failure: status %d, want 502", rec.Code)
	}
	if rec := do(t, srv, "/api/v1/etf/VTI/comparison"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing table: status %d, want 422", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&datasource.FetchError{StatusCode: 503, Err: errors.New("boom")}, http.StatusBadGateway},
		{&datasource.ScrapeError{Err: datasource.ErrTableNotFound}, http.StatusUnprocessableEntity},
		{datasource.ErrNewsDisabled, http.StatusServiceUnavailable},
		{&datasource.FetchError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetETFs(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, "/api/v1/etfs?tickers=VTI,0050,QQQ")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []struct {
			Ticker string `json:"ticker"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"VTI", "0050.TW", "QQQ"}
	if len(resp.Data) != len(want) {
		t.Fatalf("got %d reports", len(resp.Data))
	}
	for i, d := range resp.Data {
		if d.Ticker != want[i] {
			t.Errorf("data[%d].ticker = %q, want %q", i, d.Ticker, want[i])
		}
	}

	if rec := do(t, srv, "/api/v1/etfs?tickers=,"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing tickers: status %d, want 400", rec.Code)
	}
	if rec := do(t, srv, "/api/v1/etfs?tickers="+strings.Repeat("VTI,", maxBatchTickers+1)); rec.Code != http.StatusBadRequest {
		t.Errorf("too many tickers: status %d, want 400", rec.Code)
	}
}

func TestNews(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, "/api/v1/etf/VTI/news?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	items, ok := resp.Data.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected two matching items, got %+v", resp.Data)
	}
	first := items[0].(map[string]any)
	if first["title"] != "Broad market ETFs rally" {
		t.Errorf("newest item first, got %v", first["title"])
	}

	if rec := do(t, srv, "/api/v1/etf/VTI/news?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status %d, want 400", rec.Code)
	}
}

func TestNewsDisabled(t *testing.T) {
	up := newUpstream(t, nil)
	srv := testServerFor(t, up, "")
	if rec := do(t, srv, "/api/v1/etf/VTI/news"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503", rec.Code)
	}
}

func TestExport(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		format string
		want   string
	}{
		{"csv", "ticker,section,table,row,column,value"},
		{"text", "VTI"},
		{"json", `"ticker": "VTI"`},
	}
	for _, tt := range tests {
		rec := do(t, srv, "/api/v1/etf/VTI/export?format="+tt.format)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", tt.format, rec.Code)
			continue
		}
		f, _ := report.ParseFormat(tt.format)
		if ct := rec.Header().Get("Content-Type"); ct != f.ContentType() {
			t.Errorf("%s: content type %q, want %q", tt.format, ct, f.ContentType())
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: body missing %q", tt.format, tt.want)
		}
	}

	if rec := do(t, srv, "/api/v1/etf/VTI/export?format=xml"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad format: status %d, want 400", rec.Code)
	}
}

func TestGetConfig(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, "/api/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "news.feed_url") {
		t.Errorf("config body: %s", rec.Body.String())
	}
}
