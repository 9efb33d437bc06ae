package persistentlogin

import (
	"context"
	"time"
)

// Record is the persisted form of a token. Timestamps are epoch seconds.
type Record struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	UserID    int64  `json:"user_id" gorm:"not null;index"`
	Series    string `json:"-" gorm:"size:255;not null;index;uniqueIndex:idx_persistent_login_series_instance"`
	Instance  string `json:"-" gorm:"size:255;not null;uniqueIndex:idx_persistent_login_series_instance"`
	Created   int64  `json:"created" gorm:"not null"`
	Refreshed int64  `json:"refreshed" gorm:"not null"`
	Expires   int64  `json:"expires" gorm:"not null;index"`
}

func (Record) TableName() string {
	return "persistent_login"
}

func recordFromToken(t Token) *Record {
	return &Record{
		UserID:    t.userID,
		Series:    t.series,
		Instance:  t.instance,
		Created:   t.created.Unix(),
		Refreshed: t.refreshed.Unix(),
		Expires:   t.expires.Unix(),
	}
}

// Store persists tokens keyed by (series, instance). Every method issues a
// single atomic backend operation and reports failures as *StorageError.
type Store interface {
	// FindActive returns nil, nil when no row with expires > now matches.
	FindActive(ctx context.Context, series, instance string, now time.Time) (*Record, error)
	Insert(ctx context.Context, record *Record) error
	// UpdateInstance rotates the row matched by (series, oldInstance) and
	// reports whether a row matched.
	UpdateInstance(ctx context.Context, series, oldInstance, newInstance string, refreshed time.Time) (bool, error)
	Delete(ctx context.Context, series, instance string) error
	// DeleteSeries removes whatever row currently carries the series,
	// regardless of its instance.
	DeleteSeries(ctx context.Context, series string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// FindOldestBeyondLimit returns the user's row at position limit when
	// ordered by expires then created, newest first.
	FindOldestBeyondLimit(ctx context.Context, userID int64, limit int) (*Record, error)
	DeleteOlderOrEqual(ctx context.Context, userID int64, created, expires int64) (int64, error)
	FindByUser(ctx context.Context, userID int64, now time.Time) ([]Record, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
