package database

import "time"

// StockView records one user opening a stock's detail view. Views are
// written fire-and-forget; losing one is acceptable, blocking a request on
// one is not.
type StockView struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   string    `gorm:"size:64;index;not null" json:"user_id"`
	Code     string    `gorm:"size:10;index;not null" json:"code"`
	Name     string    `gorm:"size:64" json:"name"`
	Market   string    `gorm:"size:10" json:"market"` // KOSPI, KOSDAQ
	ViewedAt time.Time `gorm:"index;not null" json:"viewed_at"`
}

// TableName specifies the table name for StockView
func (StockView) TableName() string {
	return "stock_views"
}

// SignalArchive keeps one row per (date, time, source, code) strong-buy
// signal observed in a snapshot, so past memberships stay queryable after
// snapshot files rotate out of the store.
type SignalArchive struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Date   string `gorm:"size:10;index:idx_signal_archive,unique;not null" json:"date"`
	Time   string `gorm:"size:4;index:idx_signal_archive,unique;not null" json:"time"`
	Source string `gorm:"size:10;index:idx_signal_archive,unique;not null" json:"source"`
	Code   string `gorm:"size:10;index:idx_signal_archive,unique;not null" json:"code"`
	Name   string `gorm:"size:64" json:"name"`
	Signal string `gorm:"size:16;not null" json:"signal"`
}

// TableName specifies the table name for SignalArchive
func (SignalArchive) TableName() string {
	return "signal_archive"
}

// DailyViewCount is one row of the per-day view aggregate.
type DailyViewCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}
