package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestUniverseDeduplicates
func TestUniverseDeduplicates(t *testing.T) {
	cfg := SnapshotConfig{
		Equities:    []string{"TCS.NS", "INFY.NS", "TCS.NS"},
		Commodities: []string{"GOLDBEES.NS", ""},
		Currencies:  []string{"USDINR=X", "INFY.NS"},
	}

	assert.Equal(t, []string{"TCS.NS", "INFY.NS", "GOLDBEES.NS", "USDINR=X"}, cfg.Universe())
}

// go test -v --run TestSnapshotLocation
func TestSnapshotLocation(t *testing.T) {
	loc, err := SnapshotConfig{}.Location()
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = SnapshotConfig{Timezone: "Asia/Kolkata"}.Location()
	assert.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	_, err = SnapshotConfig{Timezone: "Not/AZone"}.Location()
	assert.ErrorContains(t, err, "Not/AZone")
}

// go test -v --run TestDSN
func TestDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "marketwatch",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	dsn := cfg.DSN("dev")
	assert.Equal(t, "host=localhost port=5432 user=postgres password=pw dbname=marketwatch sslmode=disable TimeZone=UTC", dsn)

	admin := cfg.AdminDSN("dev")
	assert.True(t, strings.Contains(admin, "dbname=postgres"))
	assert.Equal(t, "marketwatch", cfg.DBName)
}
