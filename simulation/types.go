// Package simulation implements the analysis-time override engine for the
// signal board: it reconciles the three independently collected history
// sources (vision, kis, combined), resolves which snapshot files correspond
// to a user-selected collection time, and rebuilds the simulation dataset
// for that time on top of the baseline prices.
package simulation

import "math"

// Source identifies one of the three snapshot producers.
type Source string

const (
	SourceVision   Source = "vision"
	SourceKIS      Source = "kis"
	SourceCombined Source = "combined"
)

// Sources lists all producers in canonical order.
var Sources = []Source{SourceVision, SourceKIS, SourceCombined}

// SignalStrongBuy is the qualifying signal emitted by the AI pipeline.
// The producer uses Korean labels: 적극매수, 매수, 중립, 매도, 적극매도.
const SignalStrongBuy = "적극매수"

// MatchStatusMatch marks a combined-source stock cross-validated by both producers.
const MatchStatusMatch = "match"

// UncollectedSuffix is appended to a stock name when it qualifies for a
// category but no price was observed for it at any collection time.
const UncollectedSuffix = " (미수집)"

// HistoryIndexEntry is one row of a source's index file: a snapshot collected
// on Date at Time, stored under Filename. Legacy entries predate intraday
// collection and carry no time; they are excluded from time resolution.
type HistoryIndexEntry struct {
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"` // zero-padded HHMM, "" for legacy entries
	Filename string `json:"filename"`
}

// HistoryIndex is a source's full snapshot catalog.
type HistoryIndex struct {
	History []HistoryIndexEntry `json:"history"`
}

// AvailableTime is one selectable collection time for a date.
type AvailableTime struct {
	Time       string `json:"time"`  // HHMM
	Label      string `json:"label"` // HH:MM
	IsEarliest bool   `json:"is_earliest"`
}

// StockResult is one analyzed stock in a vision or kis snapshot. Criteria
// detail fields emitted by the producer are not needed here; price fields in
// result lists are stale secondary data and only membership is consumed.
type StockResult struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Market       string `json:"market"`
	Signal       string `json:"signal"`
	AnalysisTime string `json:"analysis_time,omitempty"`
}

// SourceSnapshot is a vision or kis snapshot file.
type SourceSnapshot struct {
	Date        string        `json:"date"`
	CollectedAt string        `json:"collected_at"`
	TotalStocks int           `json:"total_stocks"`
	Results     []StockResult `json:"results"`
}

// CombinedStock is one cross-validated stock in a combined snapshot.
type CombinedStock struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Market       string `json:"market"`
	MatchStatus  string `json:"match_status"`
	VisionSignal string `json:"vision_signal"`
	KISSignal    string `json:"kis_signal,omitempty"`
}

// CombinedSnapshot is a combined-source snapshot file.
type CombinedSnapshot struct {
	Date        string          `json:"date"`
	CollectedAt string          `json:"collected_at"`
	Stocks      []CombinedStock `json:"stocks"`
}

// PriceRecord holds the observed prices for one stock code, unioned across
// all collection times of a date.
type PriceRecord struct {
	OpenPrice     *float64 `json:"open_price"`
	ClosePrice    *float64 `json:"close_price"`
	HighPrice     *float64 `json:"high_price"`
	HighPriceTime *string  `json:"high_price_time,omitempty"`
}

// SimulationStock is one stock row in a simulation category list. All price
// fields are nullable; nil means not yet collected.
type SimulationStock struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Market        string   `json:"market"`
	OpenPrice     *float64 `json:"open_price"`
	ClosePrice    *float64 `json:"close_price"`
	HighPrice     *float64 `json:"high_price"`
	HighPriceTime *string  `json:"high_price_time,omitempty"`
	ReturnPct     *float64 `json:"return_pct"`
	HighReturnPct *float64 `json:"high_return_pct"`
}

// Categories groups the three per-source stock lists of a simulation dataset.
type Categories struct {
	Vision   []SimulationStock `json:"vision"`
	KIS      []SimulationStock `json:"kis"`
	Combined []SimulationStock `json:"combined"`
}

// SimulationData is the simulation dataset for one date. AllPrices, when
// present, is the authoritative union of observed prices across all
// collection times and takes precedence over category-embedded prices.
type SimulationData struct {
	Date        string                 `json:"date"`
	CollectedAt string                 `json:"collected_at"`
	Categories  Categories             `json:"categories"`
	AllPrices   map[string]PriceRecord `json:"all_prices,omitempty"`
}

// Mode selects which price a simulated sell uses.
type Mode string

const (
	ModeClose Mode = "close" // sell at close price
	ModeHigh  Mode = "high"  // sell at intraday high
)

// ReturnPct computes round((sell-open)/open*10000)/100, the producer's
// two-decimal rounding rule. Returns nil when either price is missing or
// open is not positive.
func ReturnPct(open, sell *float64) *float64 {
	if open == nil || sell == nil || *open <= 0 {
		return nil
	}
	pct := math.Round((*sell-*open)/(*open)*10000) / 100
	return &pct
}

// IsStrongBuy reports whether a vision/kis result qualifies for simulation.
func (r StockResult) IsStrongBuy() bool {
	return r.Signal == SignalStrongBuy
}

// Qualifies reports whether a combined stock is a cross-validated strong buy.
func (c CombinedStock) Qualifies() bool {
	return c.MatchStatus == MatchStatusMatch && c.VisionSignal == SignalStrongBuy
}
