package app

import (
	"context"
	"log"
	"time"

	"krx-signal-board/cache"
	"krx-signal-board/database"
	"krx-signal-board/database/views"
	"krx-signal-board/realtime"
	"krx-signal-board/simulation"
	"krx-signal-board/websocket"
)

// IndexRefresher periodically re-fetches the three source indexes so newly
// collected snapshot times show up without a cache miss, broadcasts changes
// to connected dashboards, and archives the strong-buy memberships of newly
// appeared snapshots.
type IndexRefresher struct {
	indexes  *cache.IndexCache
	client   simulation.SnapshotClient
	viewRepo *views.Repository // nil disables archiving
	broker   *realtime.Broker
	hub      *websocket.Hub
	interval time.Duration
	done     chan bool

	archived map[string]bool // filenames already archived this process
}

// NewIndexRefresher creates a new index refresher
func NewIndexRefresher(indexes *cache.IndexCache, client simulation.SnapshotClient, viewRepo *views.Repository, broker *realtime.Broker, hub *websocket.Hub, interval time.Duration) *IndexRefresher {
	return &IndexRefresher{
		indexes:  indexes,
		client:   client,
		viewRepo: viewRepo,
		broker:   broker,
		hub:      hub,
		interval: interval,
		done:     make(chan bool),
		archived: make(map[string]bool),
	}
}

// Start begins the refresh loop
func (ir *IndexRefresher) Start() {
	log.Println("🔄 Index Refresher started")

	ticker := time.NewTicker(ir.interval)
	defer ticker.Stop()

	// Initial run
	ir.refresh()

	for {
		select {
		case <-ticker.C:
			ir.refresh()
		case <-ir.done:
			log.Println("🔄 Index Refresher stopped")
			return
		}
	}
}

// Stop stops the refresh loop
func (ir *IndexRefresher) Stop() {
	ir.done <- true
}

func (ir *IndexRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	changed := ir.indexes.Refresh(ctx)
	if len(changed) == 0 {
		return
	}

	log.Printf("✅ Index refresh found new entries in %d source(s)", len(changed))
	payload := map[string]interface{}{"sources": changed}
	ir.broker.Broadcast("index_refreshed", payload)
	ir.hub.Broadcast("index_refreshed", payload)

	ir.archiveNewSnapshots(ctx, changed)
}

// archiveNewSnapshots persists the strong-buy membership of snapshots not
// seen before, covering today's date. Older snapshots were archived by the
// run that first saw them.
func (ir *IndexRefresher) archiveNewSnapshots(ctx context.Context, changed []simulation.Source) {
	if ir.viewRepo == nil {
		return
	}

	today := time.Now().Format("2006-01-02")
	indexes := ir.indexes.Indexes(ctx)

	for _, src := range changed {
		idx := indexes[src]
		if idx == nil {
			continue
		}
		for _, entry := range idx.History {
			if entry.Date != today || entry.Time == "" || ir.archived[entry.Filename] {
				continue
			}
			ir.archived[entry.Filename] = true

			signals, err := ir.loadSignals(ctx, src, entry)
			if err != nil {
				log.Printf("⚠️  Failed to archive %s: %v", entry.Filename, err)
				continue
			}
			if err := ir.viewRepo.SaveSignals(signals); err != nil {
				log.Printf("⚠️  Failed to save signal archive for %s: %v", entry.Filename, err)
			}
		}
	}
}

func (ir *IndexRefresher) loadSignals(ctx context.Context, src simulation.Source, entry simulation.HistoryIndexEntry) ([]database.SignalArchive, error) {
	var signals []database.SignalArchive

	if src == simulation.SourceCombined {
		snap, err := ir.client.FetchCombinedSnapshot(ctx, entry.Filename)
		if err != nil {
			return nil, err
		}
		for _, stock := range snap.Stocks {
			if !stock.Qualifies() {
				continue
			}
			signals = append(signals, database.SignalArchive{
				Date:   entry.Date,
				Time:   entry.Time,
				Source: string(src),
				Code:   stock.Code,
				Name:   stock.Name,
				Signal: stock.VisionSignal,
			})
		}
		return signals, nil
	}

	snap, err := ir.client.FetchSourceSnapshot(ctx, src, entry.Filename)
	if err != nil {
		return nil, err
	}
	for _, result := range snap.Results {
		if !result.IsStrongBuy() {
			continue
		}
		signals = append(signals, database.SignalArchive{
			Date:   entry.Date,
			Time:   entry.Time,
			Source: string(src),
			Code:   result.Code,
			Name:   result.Name,
			Signal: result.Signal,
		})
	}
	return signals, nil
}
