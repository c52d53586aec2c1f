// Package gormstore keeps the per-tenant status documents in SQLite via
// GORM, for deployments where several processes share one status database.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/ports"
)

type statusRecord struct {
	TenantID             string    `gorm:"primaryKey;column:tenant_id"`
	Status               string
	QRCode               string    `gorm:"column:qr_code"`
	QRGeneratedAt        time.Time `gorm:"column:qr_generated_at"`
	LastConnectedAt      time.Time
	LastDisconnectReason string
	LastError            string
	RetryAttempt         int
	UpdatedAt            time.Time
}

func (statusRecord) TableName() string {
	return "connection_statuses"
}

type Repository struct {
	db    *gorm.DB
	clock ports.Clock
}

var _ ports.StatusRepository = (*Repository)(nil)

// Open opens (or creates) the status database and migrates its schema.
func Open(dbPath string, clock ports.Clock) (*Repository, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open status database: %w", err)
	}

	if err := db.AutoMigrate(&statusRecord{}); err != nil {
		return nil, fmt.Errorf("migrate status database: %w", err)
	}

	return &Repository{db: db, clock: clock}, nil
}

func (r *Repository) Get(ctx context.Context, tenantID domain.TenantID) (domain.ConnectionStatus, error) {
	var record statusRecord
	result := r.db.WithContext(ctx).First(&record, "tenant_id = ?", string(tenantID))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return domain.ConnectionStatus{}, domain.ErrStatusNotFound
		}
		return domain.ConnectionStatus{}, result.Error
	}

	return fromRecord(record), nil
}

// Merge applies a partial update inside one transaction so concurrent
// writers interleave at whole-patch granularity.
func (r *Repository) Merge(ctx context.Context, tenantID domain.TenantID, patch domain.StatusPatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current := domain.ConnectionStatus{TenantID: tenantID}

		var record statusRecord
		result := tx.First(&record, "tenant_id = ?", string(tenantID))
		switch {
		case result.Error == nil:
			current = fromRecord(record)
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			// first write for this tenant
		default:
			return result.Error
		}

		merged := patch.Apply(current)
		merged.TenantID = tenantID
		merged.UpdatedAt = r.clock.Now()

		return tx.Save(toRecord(merged)).Error
	})
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(status domain.ConnectionStatus) *statusRecord {
	return &statusRecord{
		TenantID:             string(status.TenantID),
		Status:               string(status.State),
		QRCode:               status.QRCode,
		QRGeneratedAt:        status.QRGeneratedAt,
		LastConnectedAt:      status.LastConnectedAt,
		LastDisconnectReason: status.LastDisconnectReason,
		LastError:            status.LastError,
		RetryAttempt:         status.RetryAttempt,
		UpdatedAt:            status.UpdatedAt,
	}
}

func fromRecord(record statusRecord) domain.ConnectionStatus {
	return domain.ConnectionStatus{
		TenantID:             domain.TenantID(record.TenantID),
		State:                domain.ConnState(record.Status),
		QRCode:               record.QRCode,
		QRGeneratedAt:        record.QRGeneratedAt,
		LastConnectedAt:      record.LastConnectedAt,
		LastDisconnectReason: record.LastDisconnectReason,
		LastError:            record.LastError,
		RetryAttempt:         record.RetryAttempt,
		UpdatedAt:            record.UpdatedAt,
	}
}
