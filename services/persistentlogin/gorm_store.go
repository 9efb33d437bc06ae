package persistentlogin

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindActive(ctx context.Context, series, instance string, now time.Time) (*Record, error) {
	var record Record
	err := s.db.WithContext(ctx).
		Where("series = ? AND instance = ? AND expires > ?", series, instance, now.Unix()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageError("find active", err)
	}
	return &record, nil
}

func (s *GormStore) Insert(ctx context.Context, record *Record) error {
	return storageError("insert", s.db.WithContext(ctx).Create(record).Error)
}

func (s *GormStore) UpdateInstance(ctx context.Context, series, oldInstance, newInstance string, refreshed time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Record{}).
		Where("series = ? AND instance = ?", series, oldInstance).
		Updates(map[string]any{
			"instance":  newInstance,
			"refreshed": refreshed.Unix(),
		})
	if result.Error != nil {
		return false, storageError("update instance", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) Delete(ctx context.Context, series, instance string) error {
	err := s.db.WithContext(ctx).
		Where("series = ? AND instance = ?", series, instance).
		Delete(&Record{}).Error
	return storageError("delete", err)
}

func (s *GormStore) DeleteSeries(ctx context.Context, series string) (int64, error) {
	result := s.db.WithContext(ctx).Where("series = ?", series).Delete(&Record{})
	if result.Error != nil {
		return 0, storageError("delete series", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires < ?", now.Unix()).Delete(&Record{})
	if result.Error != nil {
		return 0, storageError("delete expired", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) FindOldestBeyondLimit(ctx context.Context, userID int64, limit int) (*Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("expires DESC").
		Order("created DESC").
		Offset(limit).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, storageError("find oldest beyond limit", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *GormStore) DeleteOlderOrEqual(ctx context.Context, userID int64, created, expires int64) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND expires <= ? AND created <= ?", userID, expires, created).
		Delete(&Record{})
	if result.Error != nil {
		return 0, storageError("delete older or equal", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) FindByUser(ctx context.Context, userID int64, now time.Time) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires > ?", userID, now.Unix()).
		Order("created ASC").
		Find(&records).Error
	if err != nil {
		return nil, storageError("find by user", err)
	}
	return records, nil
}

func (s *GormStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Record{})
	if result.Error != nil {
		return 0, storageError("delete by user", result.Error)
	}
	return result.RowsAffected, nil
}
