package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"krx-signal-board/notifications"
	"krx-signal-board/realtime"
	"krx-signal-board/simulation"
	"krx-signal-board/websocket"
)

func fp(v float64) *float64 { return &v }

type fakeIndexProvider struct {
	indexes simulation.IndexSet
}

func (p *fakeIndexProvider) Indexes(_ context.Context) simulation.IndexSet {
	return p.indexes
}

type fakeBaselineProvider struct {
	data map[string]*simulation.SimulationData
}

func (p *fakeBaselineProvider) Baseline(_ context.Context, date string) (*simulation.SimulationData, error) {
	return p.data[date], nil
}

type fakeSnapshotClient struct {
	source   map[string]*simulation.SourceSnapshot
	combined map[string]*simulation.CombinedSnapshot
}

func (c *fakeSnapshotClient) FetchSourceSnapshot(_ context.Context, _ simulation.Source, filename string) (*simulation.SourceSnapshot, error) {
	return c.source[filename], nil
}

func (c *fakeSnapshotClient) FetchCombinedSnapshot(_ context.Context, filename string) (*simulation.CombinedSnapshot, error) {
	return c.combined[filename], nil
}

// newTestServer wires a server over in-memory fixtures: a baseline for
// 2026-02-04 with collection times 0700 (earliest) and 1000.
func newTestServer() *Server {
	indexes := simulation.IndexSet{
		simulation.SourceVision: {History: []simulation.HistoryIndexEntry{
			{Date: "2026-02-04", Time: "0700", Filename: "vision_2026-02-04_0700.json"},
			{Date: "2026-02-04", Time: "1000", Filename: "vision_2026-02-04_1000.json"},
		}},
		simulation.SourceKIS: {History: []simulation.HistoryIndexEntry{
			{Date: "2026-02-04", Time: "0700", Filename: "kis_2026-02-04_0700.json"},
		}},
		simulation.SourceCombined: {History: []simulation.HistoryIndexEntry{
			{Date: "2026-02-04", Time: "0700", Filename: "combined_2026-02-04_0700.json"},
			{Date: "2026-02-04", Time: "1000", Filename: "combined_2026-02-04_1000.json"},
		}},
	}

	baseline := &simulation.SimulationData{
		Date:        "2026-02-04",
		CollectedAt: "2026-02-04T07:00:00+09:00",
		Categories: simulation.Categories{
			Vision: []simulation.SimulationStock{
				{Code: "005930", Name: "삼성전자", Market: "KOSPI", OpenPrice: fp(70000), ClosePrice: fp(73500), ReturnPct: fp(5.0)},
			},
			KIS:      []simulation.SimulationStock{},
			Combined: []simulation.SimulationStock{},
		},
		AllPrices: map[string]simulation.PriceRecord{
			"005930": {OpenPrice: fp(70000), ClosePrice: fp(73500), HighPrice: fp(74000)},
			"035720": {OpenPrice: fp(1000), ClosePrice: fp(1050), HighPrice: fp(1060)},
		},
	}

	client := &fakeSnapshotClient{
		source: map[string]*simulation.SourceSnapshot{
			"vision_2026-02-04_1000.json": {
				Date:        "2026-02-04",
				CollectedAt: "2026-02-04T10:00:00+09:00",
				Results: []simulation.StockResult{
					{Code: "035720", Name: "카카오", Market: "KOSPI", Signal: simulation.SignalStrongBuy},
				},
			},
		},
		combined: map[string]*simulation.CombinedSnapshot{
			"combined_2026-02-04_1000.json": {
				Date:        "2026-02-04",
				CollectedAt: "2026-02-04T10:00:00+09:00",
				Stocks:      []simulation.CombinedStock{},
			},
		},
	}

	engine := simulation.NewEngine(
		&fakeIndexProvider{indexes: indexes},
		&fakeBaselineProvider{data: map[string]*simulation.SimulationData{"2026-02-04": baseline}},
		simulation.NewOverrideFetcher(client),
		simulation.NewSelectionStore(),
	)

	return NewServer(
		engine,
		nil,
		notifications.NewViewRecorder(nil),
		notifications.NewOverrideWebhook(""),
		realtime.NewBroker(),
		websocket.NewHub(),
	)
}

func TestGetSimulationRequiresDate(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleGetSimulation(w, httptest.NewRequest("GET", "/api/simulation", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetSimulationBaseline(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleGetSimulation(w, httptest.NewRequest("GET", "/api/simulation?date=2026-02-04", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result simulation.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Overridden {
		t.Error("baseline response must not be marked overridden")
	}
	if result.Data == nil || result.Data.Date != "2026-02-04" {
		t.Errorf("unexpected data: %+v", result.Data)
	}
	if result.EarliestTime != "0700" {
		t.Errorf("earliest = %s", result.EarliestTime)
	}
	if len(result.AvailableTimes) != 2 {
		t.Errorf("expected 2 available times, got %d", len(result.AvailableTimes))
	}
}

func TestGetSimulationUnknownDate(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleGetSimulation(w, httptest.NewRequest("GET", "/api/simulation?date=1999-01-01", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetAvailableTimes(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleGetAvailableTimes(w, httptest.NewRequest("GET", "/api/simulation/times?date=2026-02-04", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Times []simulation.AvailableTime `json:"times"`
		Count int                        `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d", resp.Count)
	}
	if !resp.Times[0].IsEarliest || resp.Times[0].Label != "07:00" {
		t.Errorf("unexpected first time: %+v", resp.Times[0])
	}
}

func TestSetOverrideRejectsUnavailableTime(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"date":"2026-02-04","time":"1330"}`)
	s.handleSetOverride(w, httptest.NewRequest("PUT", "/api/simulation/override", body))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestOverrideLifecycle(t *testing.T) {
	s := newTestServer()

	// Set an override to the later collection time.
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"date":"2026-02-04","time":"1000"}`)
	s.handleSetOverride(w, httptest.NewRequest("PUT", "/api/simulation/override", body))
	if w.Code != http.StatusOK {
		t.Fatalf("set override: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// The dataset now reflects the 10:00 snapshots.
	w = httptest.NewRecorder()
	s.handleGetSimulation(w, httptest.NewRequest("GET", "/api/simulation?date=2026-02-04", nil))

	var result simulation.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Overridden {
		t.Fatal("expected overridden dataset")
	}
	if result.SelectedTime != "1000" {
		t.Errorf("selected = %s", result.SelectedTime)
	}
	if len(result.Data.Categories.Vision) != 1 || result.Data.Categories.Vision[0].Code != "035720" {
		t.Errorf("unexpected vision category: %+v", result.Data.Categories.Vision)
	}
	if got := result.Data.Categories.Vision[0].ReturnPct; got == nil || *got != 5.0 {
		t.Errorf("expected recomputed return 5.0, got %v", got)
	}

	// Clearing restores the baseline.
	w = httptest.NewRecorder()
	s.handleClearOverride(w, httptest.NewRequest("DELETE", "/api/simulation/override?date=2026-02-04", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear override: expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.handleGetSimulation(w, httptest.NewRequest("GET", "/api/simulation?date=2026-02-04", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Overridden {
		t.Error("expected baseline after clearing override")
	}
	if result.Data.Categories.Vision[0].Code != "005930" {
		t.Errorf("unexpected vision category: %+v", result.Data.Categories.Vision)
	}
}

func TestSetOverrideToEarliestClears(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"date":"2026-02-04","time":"0700"}`)
	s.handleSetOverride(w, httptest.NewRequest("PUT", "/api/simulation/override", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Overridden bool `json:"overridden"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Overridden {
		t.Error("selecting the earliest time must not create an override")
	}
	if got := s.engine.Store().TimeOverride("2026-02-04"); got != "" {
		t.Errorf("expected no stored override, got %q", got)
	}
}

func TestGetSummary(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleGetSummary(w, httptest.NewRequest("GET", "/api/simulation/summary?date=2026-02-04", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Counts map[string]int `json:"counts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Counts["vision"] != 1 || resp.Counts["distinct"] != 1 {
		t.Errorf("unexpected counts: %v", resp.Counts)
	}
}

func TestSetModeValidation(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.handleSetMode(w, httptest.NewRequest("POST", "/api/selection/mode", strings.NewReader(`{"mode":"high"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := s.engine.Store().Mode(); got != simulation.ModeHigh {
		t.Errorf("mode = %s", got)
	}

	w = httptest.NewRecorder()
	s.handleSetMode(w, httptest.NewRequest("POST", "/api/selection/mode", strings.NewReader(`{"mode":"vwap"}`)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}
