package postgres

import (
	"context"
	"fmt"
	"time"

	"marketwatch/internal/snapshot"

	"gorm.io/gorm/clause"
)

var _ snapshot.Mirror = (*PostgresClient)(nil)

// SaveSnapshot upserts a refreshed table. Re-saving the same day overwrites
// that day's rows.
func (p *PostgresClient) SaveSnapshot(ctx context.Context, rows []snapshot.Row) error {
	if len(rows) == 0 {
		return nil
	}

	records := make([]SnapshotRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, ToSnapshotRecord(r))
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "as_of"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "recorded_at"}),
	}).CreateInBatches(records, 100)

	if tx.Error != nil {
		return fmt.Errorf("upsert snapshot: %w", tx.Error)
	}
	return nil
}

// GetSnapshot returns the rows stored for one calendar day.
func (p *PostgresClient) GetSnapshot(ctx context.Context, asOf time.Time) ([]snapshot.Row, error) {
	var records []SnapshotRecord
	err := p.DB.WithContext(ctx).
		Where("as_of = ?", asOf.Format("2006-01-02")).
		Order("symbol").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	rows := make([]snapshot.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.ToRow())
	}
	return rows, nil
}

// DeleteSnapshotsBefore drops every day older than before.
func (p *PostgresClient) DeleteSnapshotsBefore(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("as_of < ?", before.Format("2006-01-02")).
		Delete(&SnapshotRecord{}).Error
}

// ToSnapshotRecord converts a snapshot row for DB insertion.
func ToSnapshotRecord(r snapshot.Row) SnapshotRecord {
	return SnapshotRecord{
		Symbol: r.Symbol,
		AsOf:   r.AsOf,
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}

func (rec SnapshotRecord) ToRow() snapshot.Row {
	y, m, d := rec.AsOf.Date()
	return snapshot.Row{
		Symbol: rec.Symbol,
		Open:   rec.Open,
		High:   rec.High,
		Low:    rec.Low,
		Close:  rec.Close,
		Volume: rec.Volume,
		AsOf:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}
}
