package api

import (
	"fmt"
	"strings"

	"krx-signal-board/helpers"
	"krx-signal-board/simulation"
)

// BuildMarkdownReport renders the dataset of one date as a markdown report,
// one table per category, matching the report files the producer pipeline
// writes alongside its snapshots.
func BuildMarkdownReport(result *simulation.Result) string {
	var b strings.Builder

	b.WriteString("# 주식 시그널 리포트\n")
	fmt.Fprintf(&b, "\n날짜: %s\n", result.Data.Date)
	if result.Overridden {
		fmt.Fprintf(&b, "분석 시각: %s (기준 %s)\n",
			simulation.FormatTimeLabel(result.SelectedTime),
			simulation.FormatTimeLabel(result.EarliestTime))
	} else if result.EarliestTime != "" {
		fmt.Fprintf(&b, "분석 시각: %s\n", simulation.FormatTimeLabel(result.EarliestTime))
	}

	sections := []struct {
		title  string
		stocks []simulation.SimulationStock
	}{
		{"Vision AI", result.Data.Categories.Vision},
		{"KIS", result.Data.Categories.KIS},
		{"Combined", result.Data.Categories.Combined},
	}

	for _, sec := range sections {
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", sec.title, len(sec.stocks))
		if len(sec.stocks) == 0 {
			b.WriteString("해당 없음\n")
			continue
		}

		b.WriteString("| 종목명 | 코드 | 시장 | 시가 | 종가 | 고가 | 수익률 | 고가 수익률 |\n")
		b.WriteString("|--------|------|------|------|------|------|--------|-------------|\n")
		for _, stock := range sec.stocks {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				stock.Name,
				stock.Code,
				stock.Market,
				formatPrice(stock.OpenPrice),
				formatPrice(stock.ClosePrice),
				formatPrice(stock.HighPrice),
				helpers.FormatPct(stock.ReturnPct),
				helpers.FormatPct(stock.HighReturnPct),
			)
		}
	}

	return b.String()
}

func formatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return helpers.FormatWon(*price)
}
