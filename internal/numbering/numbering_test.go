package numbering

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFormat(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-20240301-000042", Format(InvoiceTemplate, at, 42))
	assert.Equal(t, "QUO-20240301-000001", Format(QuoteTemplate, at, 1))
	assert.Equal(t, "X-7", Format("X-{SEQ1}", at, 7))
}

func TestNextIncrementsPerPeriod(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec(`
		CREATE TABLE number_sequences (
			org_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			period TEXT NOT NULL,
			value INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (org_id, kind, period)
		)`).Error)

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	for want := int64(1); want <= 3; want++ {
		got, err := Next(gdb, 1, KindInvoice, day1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Separate period and kind restart at one.
	got, err := Next(gdb, 1, KindInvoice, day2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = Next(gdb, 1, KindQuote, day1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	// Other orgs do not share the sequence.
	got, err = Next(gdb, 2, KindInvoice, day1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}
