package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteHistoryRepository implements DownloadHistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository opens (and migrates) the history database
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Create stores a finished task record
func (r *SQLiteHistoryRepository) Create(record *domain.DownloadRecord) error {
	return r.db.Create(record).Error
}

// FindByBatch finds all records of a batch in execution order
func (r *SQLiteHistoryRepository) FindByBatch(batchID string) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	err := r.db.Where("batch_id = ?", batchID).
		Order("started_at ASC, created_at ASC").
		Find(&records).Error
	return records, err
}

// FindRecent finds the most recent records, newest first
func (r *SQLiteHistoryRepository) FindRecent(limit int) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	query := r.db.Order("finished_at DESC, created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// GetStats returns history statistics
func (r *SQLiteHistoryRepository) GetStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	if err := r.db.Model(&domain.DownloadRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	counts := map[domain.TaskState]*int64{
		domain.TaskSucceeded: &stats.Succeeded,
		domain.TaskFailed:    &stats.Failed,
		domain.TaskTimedOut:  &stats.TimedOut,
		domain.TaskSkipped:   &stats.Skipped,
	}
	for state, dst := range counts {
		if err := r.db.Model(&domain.DownloadRecord{}).Where("state = ?", state).Count(dst).Error; err != nil {
			return nil, err
		}
	}

	if err := r.db.Model(&domain.DownloadRecord{}).Distinct("batch_id").Count(&stats.Batches).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
