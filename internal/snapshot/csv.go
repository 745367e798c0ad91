package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

var header = []string{"symbol", "open", "high", "low", "close", "volume", "as_of"}

// writeFile replaces path with the table. The rows go to a temp file in the
// same directory which is then renamed over path, so readers see either the
// old table or the new one.
func writeFile(path string, rows map[string]Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if err := encode(tmpFile, rows); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// readFile loads the table at path. A missing file is an empty table.
func readFile(path string) (map[string]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Row{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

func encode(w io.Writer, rows map[string]Row) error {
	symbols := make([]string, 0, len(rows))
	for s := range rows {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range symbols {
		r := rows[s]
		rec := []string{
			r.Symbol,
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			strconv.FormatInt(r.Volume, 10),
			r.AsOf.Format(dateLayout),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decode(r io.Reader) (map[string]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot csv: %w", err)
	}

	rows := make(map[string]Row, len(records))
	for i, rec := range records {
		if i == 0 && rec[0] == header[0] {
			continue
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", i+1, err)
		}
		rows[row.Symbol] = row
	}
	return rows, nil
}

func parseRecord(rec []string) (Row, error) {
	var (
		row Row
		err error
	)
	row.Symbol = rec[0]
	if row.Open, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return Row{}, err
	}
	if row.High, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return Row{}, err
	}
	if row.Low, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return Row{}, err
	}
	if row.Close, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return Row{}, err
	}
	if row.Volume, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
		return Row{}, err
	}
	if row.AsOf, err = time.Parse(dateLayout, rec[6]); err != nil {
		return Row{}, err
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
