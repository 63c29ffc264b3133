// Package views persists per-user stock view history.
package views

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"krx-signal-board/database"
)

// Repository handles database operations for view history. GORM covers the
// row-level operations; the daily aggregate goes through the raw analytics
// connection.
type Repository struct {
	db        *gorm.DB
	analytics *sql.DB // optional, nil disables aggregates
}

// NewRepository creates a new views repository
func NewRepository(db *gorm.DB, analytics *sql.DB) *Repository {
	return &Repository{db: db, analytics: analytics}
}

// InitSchema performs auto-migration for view history tables
func (r *Repository) InitSchema() error {
	if err := r.db.AutoMigrate(&database.StockView{}, &database.SignalArchive{}); err != nil {
		return database.WrapDBError("InitSchema", err)
	}
	return nil
}

// SaveView records a single stock view
func (r *Repository) SaveView(view *database.StockView) error {
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now()
	}
	if err := r.db.Create(view).Error; err != nil {
		return database.WrapDBError("SaveView", err)
	}
	return nil
}

// GetRecentViews retrieves a user's most recent views, newest first
func (r *Repository) GetRecentViews(userID string, limit int) ([]database.StockView, error) {
	var views []database.StockView
	err := r.db.
		Where("user_id = ?", userID).
		Order("viewed_at DESC").
		Limit(limit).
		Find(&views).Error
	if err != nil {
		return nil, database.WrapDBError("GetRecentViews", err)
	}
	return views, nil
}

// SaveSignals archives the strong-buy memberships of one snapshot. Conflicts
// on (date, time, source, code) are ignored: re-fetching a snapshot must not
// duplicate rows.
func (r *Repository) SaveSignals(signals []database.SignalArchive) error {
	if len(signals) == 0 {
		return nil
	}
	err := r.db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&signals).Error
	return database.WrapDBError("SaveSignals", err)
}

// GetDailyViewCounts aggregates a user's views per day over the last
// daysBack days, most recent day first.
func (r *Repository) GetDailyViewCounts(userID string, daysBack int) ([]database.DailyViewCount, error) {
	if r.analytics == nil {
		return nil, database.WrapDBError("GetDailyViewCounts", sql.ErrConnDone)
	}

	rows, err := r.analytics.Query(`
		SELECT to_char(viewed_at::date, 'YYYY-MM-DD') AS day, COUNT(*) AS count
		FROM stock_views
		WHERE user_id = $1 AND viewed_at >= NOW() - ($2 || ' days')::interval
		GROUP BY viewed_at::date
		ORDER BY viewed_at::date DESC
	`, userID, daysBack)
	if err != nil {
		return nil, database.WrapDBError("GetDailyViewCounts", err)
	}
	defer rows.Close()

	var counts []database.DailyViewCount
	for rows.Next() {
		var c database.DailyViewCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, database.WrapDBError("GetDailyViewCounts", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
