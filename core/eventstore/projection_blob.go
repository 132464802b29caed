package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobStore persists a single JSON-blob-per-aggregate-id projection, used by
// the history/repayment-plan projections (core/projections). The chart's
// period closing (core/accounting) is kept in its own event stream, not here.
type BlobStore struct {
	db         *gorm.DB
	projection string
}

// NewBlobStore returns a BlobStore scoped to one projection name.
func NewBlobStore(db *gorm.DB, projection string) *BlobStore {
	return &BlobStore{db: db, projection: projection}
}

// Save upserts the blob for aggregateID, recording lastSequence so the
// projection can resume from where it left off after a restart (spec.md
// §4.9, §5).
func (b *BlobStore) Save(ctx context.Context, aggregateID string, lastSequence uint64, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	row := ProjectionBlob{
		Projection:   b.projection,
		AggregateID:  aggregateID,
		LastSequence: lastSequence,
		Blob:         payload,
		UpdatedAt:    time.Now().UTC(),
	}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "projection"}, {Name: "aggregate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sequence", "blob", "updated_at"}),
	}).Create(&row).Error
}

// Load returns the last-consumed sequence and decodes the stored blob into
// out. ok is false when no blob has ever been saved for aggregateID.
func (b *BlobStore) Load(ctx context.Context, aggregateID string, out any) (lastSequence uint64, ok bool, err error) {
	var row ProjectionBlob
	tx := b.db.WithContext(ctx).
		Where("projection = ? AND aggregate_id = ?", b.projection, aggregateID).
		First(&row)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, tx.Error
	}
	if err := json.Unmarshal(row.Blob, out); err != nil {
		return 0, false, err
	}
	return row.LastSequence, true, nil
}
