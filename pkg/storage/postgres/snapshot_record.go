package postgres

import "time"

// SnapshotRecord is one symbol's daily row, keyed by (symbol, as_of).
type SnapshotRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol string    `gorm:"type:text;not null;index:idx_snapshot_symbol;index:idx_snapshot_symbol_as_of,unique"`
	AsOf   time.Time `gorm:"type:date;not null;index:idx_snapshot_symbol_as_of,unique;index:idx_snapshot_as_of"`

	Open  float64 `gorm:"type:numeric;not null"`
	High  float64 `gorm:"type:numeric;not null"`
	Low   float64 `gorm:"type:numeric;not null"`
	Close float64 `gorm:"type:numeric;not null"`

	Volume int64 `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (SnapshotRecord) TableName() string {
	return "snapshot_record"
}
