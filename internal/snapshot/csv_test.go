package snapshot

import (
	"bytes"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestFileRoundTrip
func TestFileRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	for n := 1; n <= 25; n += 6 {
		rows := make(map[string]Row, n)
		for i := 0; i < n; i++ {
			sym := fmt.Sprintf("SYM%d.NS", i)
			if i%3 == 0 {
				sym = fmt.Sprintf("M&M,\"%d\"=X", i) // needs quoting
			}
			rows[sym] = Row{
				Symbol: sym,
				Open:   rng.Float64() * 5000,
				High:   rng.Float64() * 5000,
				Low:    rng.Float64() * 5000,
				Close:  rng.Float64() * 5000,
				Volume: rng.Int63n(1 << 40),
				AsOf:   asOf,
			}
		}

		path := filepath.Join(t.TempDir(), "snap.csv")
		require.NoError(t, writeFile(path, rows))

		got, err := readFile(path)
		require.NoError(t, err)
		assert.Equal(t, rows, got)
	}
}

// go test -v --run TestEncodeLayout
func TestEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	err := encode(&buf, map[string]Row{
		"TCS.NS": {Symbol: "TCS.NS", Open: 3400, High: 3450.5, Low: 3390, Close: 3440.25, Volume: 1000,
			AsOf: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.Equal(t, "symbol,open,high,low,close,volume,as_of\nTCS.NS,3400,3450.5,3390,3440.25,1000,2024-06-03\n", buf.String())
}

// go test -v --run TestReadMissingFile
func TestReadMissingFile(t *testing.T) {
	rows, err := readFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
