package postgres

import (
	"testing"
	"time"

	"marketwatch/internal/snapshot"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestSnapshotRecordConversion
func TestSnapshotRecordConversion(t *testing.T) {
	row := snapshot.Row{
		Symbol: "GOLDBEES.NS",
		Open:   61.2,
		High:   61.9,
		Low:    60.8,
		Close:  61.5,
		Volume: 987654,
		AsOf:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
	}

	rec := ToSnapshotRecord(row)
	assert.Equal(t, "GOLDBEES.NS", rec.Symbol)

	// the driver hands dates back in the session zone
	rec.AsOf = rec.AsOf.In(time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "snapshot_record", rec.TableName())
	assert.Equal(t, row.AsOf.Format("2006-01-02"), rec.ToRow().AsOf.Format("2006-01-02"))
}
