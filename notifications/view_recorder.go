// Package notifications handles one-way side effects: view-history recording
// and the optional webhook fan-out for override events. Nothing here returns
// a value the core consumes; failures are logged and dropped.
package notifications

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"krx-signal-board/database"
	"krx-signal-board/database/views"
)

// ViewRecorder records stock views asynchronously. A request never waits on
// the database write.
type ViewRecorder struct {
	repo *views.Repository
}

// NewViewRecorder creates a view recorder
func NewViewRecorder(repo *views.Repository) *ViewRecorder {
	return &ViewRecorder{repo: repo}
}

// RecordView saves a view in the background. Safe to call with a nil
// receiver repo (persistence disabled); the view is simply dropped.
func (vr *ViewRecorder) RecordView(view database.StockView) {
	if vr.repo == nil {
		return
	}
	go func() {
		if err := vr.repo.SaveView(&view); err != nil {
			log.Printf("⚠️  Failed to record view for %s: %v", view.Code, err)
		}
	}()
}

// OverrideWebhook POSTs override events to an external URL when configured.
type OverrideWebhook struct {
	url    string
	client *http.Client
}

// OverridePayload is the JSON body sent for an override event.
type OverridePayload struct {
	Event        string    `json:"event"` // "override_set" or "override_cleared"
	Date         string    `json:"date"`
	SelectedTime string    `json:"selected_time,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewOverrideWebhook creates a webhook sender. An empty url disables it.
func NewOverrideWebhook(url string) *OverrideWebhook {
	return &OverrideWebhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify delivers the event asynchronously.
func (ow *OverrideWebhook) Notify(event, date, selectedTime string) {
	if ow.url == "" {
		return
	}

	payload := OverridePayload{
		Event:        event,
		Date:         date,
		SelectedTime: selectedTime,
		OccurredAt:   time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal override webhook payload: %v", err)
		return
	}

	go func() {
		resp, err := ow.client.Post(ow.url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("⚠️  Override webhook delivery failed: %v", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("⚠️  Override webhook returned status %d", resp.StatusCode)
		}
	}()
}
