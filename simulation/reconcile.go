package simulation

// priceEntry is a resolved price row in the reconciliation lookup.
type priceEntry struct {
	open          *float64
	close         *float64
	high          *float64
	highTime      *string
	returnPct     *float64
	highReturnPct *float64
}

// buildPriceLookup assembles the code -> price mapping used to attach prices
// to overridden membership lists. AllPrices is the authoritative union of
// observed prices across all collection times of the date; category-embedded
// prices only fill codes it does not cover.
//
// Percentages for AllPrices-sourced codes are recomputed from the raw prices
// so a stale stored value can never leak through. Category-only codes keep
// their already-computed percentages verbatim: their raw prices may reflect a
// single collection and recomputing would not improve on what the producer
// stored.
func buildPriceLookup(baseline *SimulationData) map[string]priceEntry {
	lookup := make(map[string]priceEntry)

	for code, rec := range baseline.AllPrices {
		lookup[code] = priceEntry{
			open:          rec.OpenPrice,
			close:         rec.ClosePrice,
			high:          rec.HighPrice,
			highTime:      rec.HighPriceTime,
			returnPct:     ReturnPct(rec.OpenPrice, rec.ClosePrice),
			highReturnPct: ReturnPct(rec.OpenPrice, rec.HighPrice),
		}
	}

	for _, stocks := range [][]SimulationStock{
		baseline.Categories.Vision,
		baseline.Categories.KIS,
		baseline.Categories.Combined,
	} {
		for _, s := range stocks {
			if _, ok := lookup[s.Code]; ok {
				continue
			}
			lookup[s.Code] = priceEntry{
				open:          s.OpenPrice,
				close:         s.ClosePrice,
				high:          s.HighPrice,
				highTime:      s.HighPriceTime,
				returnPct:     s.ReturnPct,
				highReturnPct: s.HighReturnPct,
			}
		}
	}

	return lookup
}

// member is one qualifying stock of a category at the overridden time.
type member struct {
	code   string
	name   string
	market string
}

func sourceMembers(snap *SourceSnapshot) []member {
	if snap == nil {
		return nil
	}
	var out []member
	for _, r := range snap.Results {
		if r.IsStrongBuy() {
			out = append(out, member{code: r.Code, name: r.Name, market: r.Market})
		}
	}
	return out
}

func combinedMembers(snap *CombinedSnapshot) []member {
	if snap == nil {
		return nil
	}
	var out []member
	for _, s := range snap.Stocks {
		if s.Qualifies() {
			out = append(out, member{code: s.Code, name: s.Name, market: s.Market})
		}
	}
	return out
}

// attachPrices turns a membership list into simulation stock rows. A member
// with no price entry still appears, with nil prices and an annotated name;
// a qualifying stock is never dropped for missing price data.
func attachPrices(members []member, lookup map[string]priceEntry) []SimulationStock {
	out := make([]SimulationStock, 0, len(members))
	for _, m := range members {
		p, ok := lookup[m.code]
		if !ok {
			out = append(out, SimulationStock{
				Code:   m.code,
				Name:   m.name + UncollectedSuffix,
				Market: m.market,
			})
			continue
		}
		out = append(out, SimulationStock{
			Code:          m.code,
			Name:          m.name,
			Market:        m.market,
			OpenPrice:     p.open,
			ClosePrice:    p.close,
			HighPrice:     p.high,
			HighPriceTime: p.highTime,
			ReturnPct:     p.returnPct,
			HighReturnPct: p.highReturnPct,
		})
	}
	return out
}

// BuildOverriddenData rebuilds the simulation dataset for an overridden
// collection time. Membership comes exclusively from the fetched snapshots;
// a source whose snapshot is nil contributes an empty category. Prices come
// from the baseline's price union. The result carries the baseline's date and
// collected_at and is deep-equal across calls with identical inputs.
//
// Returns nil when there is no baseline to reconcile against.
func BuildOverriddenData(baseline *SimulationData, vision, kis *SourceSnapshot, combined *CombinedSnapshot) *SimulationData {
	if baseline == nil {
		return nil
	}

	lookup := buildPriceLookup(baseline)

	return &SimulationData{
		Date:        baseline.Date,
		CollectedAt: baseline.CollectedAt,
		Categories: Categories{
			Vision:   attachPrices(sourceMembers(vision), lookup),
			KIS:      attachPrices(sourceMembers(kis), lookup),
			Combined: attachPrices(combinedMembers(combined), lookup),
		},
		AllPrices: baseline.AllPrices,
	}
}
