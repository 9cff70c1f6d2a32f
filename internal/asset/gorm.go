package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Compile-time check that GormRepository implements Repository.
var _ Repository = (*GormRepository)(nil)

// assetRow is the persisted shape of an Asset.
type assetRow struct {
	ID               string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OwnerID          string    `gorm:"column:owner_id;type:varchar(255);not null;index"`
	DisplayName      string    `gorm:"column:display_name;type:varchar(255);not null"`
	LocalReference   *string   `gorm:"column:local_reference;type:varchar(255)"`
	DurableReference *string   `gorm:"column:durable_reference;type:varchar(500)"`
	LocalStatus      string    `gorm:"column:local_status;type:text;not null;check:chk_assets_local_status,local_status IN ('pending','uploading','success','failed')"`
	CloudStatus      string    `gorm:"column:cloud_status;type:text;not null;check:chk_assets_cloud_status,cloud_status IN ('pending','uploading','success','failed')"`
	LocalRetryCount  int       `gorm:"column:local_retry_count;not null;check:chk_assets_local_retry_count,local_retry_count >= 0"`
	CloudRetryCount  int       `gorm:"column:cloud_retry_count;not null;check:chk_assets_cloud_retry_count,cloud_retry_count >= 0"`
	SizeBytes        *int64    `gorm:"column:size_bytes"`
	DurationMs       *int64    `gorm:"column:duration_ms"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	LastModified     time.Time `gorm:"column:last_modified;not null;index"`
}

func (assetRow) TableName() string {
	return "assets"
}

func toRow(a *Asset) assetRow {
	return assetRow{
		ID:               a.ID,
		OwnerID:          a.OwnerID,
		DisplayName:      a.DisplayName,
		LocalReference:   cloneString(a.LocalReference),
		DurableReference: cloneString(a.DurableReference),
		LocalStatus:      string(a.LocalStatus),
		CloudStatus:      string(a.CloudStatus),
		LocalRetryCount:  a.LocalRetryCount,
		CloudRetryCount:  a.CloudRetryCount,
		SizeBytes:        cloneInt64(a.SizeBytes),
		DurationMs:       cloneInt64(a.DurationMs),
		CreatedAt:        a.CreatedAt.UTC(),
		LastModified:     a.LastModified.UTC(),
	}
}

func (r assetRow) toAsset() *Asset {
	return &Asset{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		DisplayName:      r.DisplayName,
		LocalReference:   r.LocalReference,
		DurableReference: r.DurableReference,
		LocalStatus:      Status(r.LocalStatus),
		CloudStatus:      Status(r.CloudStatus),
		LocalRetryCount:  r.LocalRetryCount,
		CloudRetryCount:  r.CloudRetryCount,
		SizeBytes:        r.SizeBytes,
		DurationMs:       r.DurationMs,
		CreatedAt:        r.CreatedAt.UTC(),
		LastModified:     r.LastModified.UTC(),
	}
}

// columns maps the patch onto column updates.
func (p Patch) columns(now time.Time) map[string]interface{} {
	cols := map[string]interface{}{"last_modified": now}
	if p.DisplayName != nil {
		cols["display_name"] = *p.DisplayName
	}
	if p.DurableReference != nil {
		cols["durable_reference"] = *p.DurableReference
	}
	if p.LocalStatus != nil {
		cols["local_status"] = string(*p.LocalStatus)
	}
	if p.CloudStatus != nil {
		cols["cloud_status"] = string(*p.CloudStatus)
	}
	if p.LocalRetryCount != nil {
		cols["local_retry_count"] = *p.LocalRetryCount
	}
	if p.CloudRetryCount != nil {
		cols["cloud_retry_count"] = *p.CloudRetryCount
	}
	return cols
}

// GormRepository persists assets in a SQL database through gorm.
// The connection pool behind db is shared by all requests.
type GormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRepository creates a repository on top of an open gorm connection.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the assets table and its check constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&assetRow{}); err != nil {
		return fmt.Errorf("migrate assets: %w", err)
	}
	return nil
}

// Create inserts a new asset row.
func (r *GormRepository) Create(ctx context.Context, a *Asset) error {
	row := toRow(a)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// Get loads one asset row.
func (r *GormRepository) Get(ctx context.Context, id string) (*Asset, error) {
	var row assetRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return row.toAsset(), nil
}

// ListByOwner loads the owner's assets, newest first.
func (r *GormRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Asset, error) {
	var rows []assetRow
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	result := make([]*Asset, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toAsset())
	}
	return result, nil
}

// Update applies the patch and reloads the row in one transaction.
func (r *GormRepository) Update(ctx context.Context, id string, p Patch) (*Asset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var row assetRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&assetRow{}).
			Where("id = ?", id).
			Updates(p.columns(r.now()))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update asset: %w", err)
	}
	return row.toAsset(), nil
}

// Delete removes the asset row.
func (r *GormRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&assetRow{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete asset: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FailStaleUploads demotes stale uploading tracks in a single statement.
func (r *GormRepository) FailStaleUploads(ctx context.Context, cutoff time.Time) (int64, error) {
	uploading, failed := string(StatusUploading), string(StatusFailed)
	res := r.db.WithContext(ctx).
		Model(&assetRow{}).
		Where("(local_status = ? OR cloud_status = ?) AND last_modified < ?", uploading, uploading, cutoff.UTC()).
		Updates(map[string]interface{}{
			"local_status":  gorm.Expr("CASE WHEN local_status = ? THEN ? ELSE local_status END", uploading, failed),
			"cloud_status":  gorm.Expr("CASE WHEN cloud_status = ? THEN ? ELSE cloud_status END", uploading, failed),
			"last_modified": r.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("fail stale uploads: %w", res.Error)
	}
	return res.RowsAffected, nil
}
