package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/journal"
	"codeberg.org/mutker/trapbridge/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) journal.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := journal.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(dir, "journal.db")
	cfg.BackupDir = filepath.Join(dir, "backups")
	cfg.BatchTimeout = 60
	return cfg
}

func TestDisabledJournalIsNoop(t *testing.T) {
	j, err := journal.NewService(journal.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, j.Record(context.Background(), &journal.Entry{Kind: journal.KindEvent}))
	entries, err := j.Entries(context.Background(), journal.KindAny)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, j.Close())
}

func TestValidateRequiresPath(t *testing.T) {
	cfg := journal.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, journal.ErrInvalidDBPath))
}

func TestRecordAndFilter(t *testing.T) {
	j, err := journal.NewService(testConfig(t))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, &journal.Entry{
		Timestamp: at,
		Kind:      journal.KindEvent,
		SessionID: "s1",
		Value:     value.From(map[string]any{"a": 1, "b": "x"}),
	}))
	require.NoError(t, j.Record(ctx, &journal.Entry{
		Timestamp: at,
		Kind:      journal.KindMetadataSet,
		SessionID: "s1",
		Key:       "user",
		Value:     value.OfString("alice"),
	}))
	require.NoError(t, j.Record(ctx, &journal.Entry{
		Kind:      journal.KindMetadataRemove,
		SessionID: "s1",
		Key:       "user",
	}))

	all, err := j.Entries(ctx, journal.KindAny)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, journal.KindEvent, all[0].Kind)
	assert.Equal(t, journal.KindMetadataRemove, all[2].Kind)

	events, err := j.Entries(ctx, journal.KindEvent)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, at.Equal(events[0].Timestamp))
	assert.Equal(t, "s1", events[0].SessionID)
	assert.True(t, value.From(map[string]any{"a": 1, "b": "x"}).Equal(events[0].Value))

	meta, err := j.Entries(ctx, journal.KindMetadataSet)
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "user", meta[0].Key)
}

func TestRecordRejectsInvalidEntries(t *testing.T) {
	j, err := journal.NewService(testConfig(t))
	require.NoError(t, err)
	defer j.Close()

	err = j.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, journal.ErrInvalidEntry))

	err = j.Record(context.Background(), &journal.Entry{Kind: "bogus"})
	assert.True(t, errors.HasCode(err, journal.ErrInvalidEntry))
}

func TestRecordHonoursCancelledContext(t *testing.T) {
	j, err := journal.NewService(testConfig(t))
	require.NoError(t, err)
	defer j.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = j.Record(ctx, &journal.Entry{Kind: journal.KindLifecycle, Value: value.OfString("Running")})
	assert.True(t, errors.HasCode(err, journal.ErrOperationTimeout))
}

func TestEntriesSurviveReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	j, err := journal.NewService(cfg)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, &journal.Entry{
		Kind:  journal.KindLifecycle,
		Value: value.OfString("Configured"),
	}))
	require.NoError(t, j.Close())

	j, err = journal.NewService(cfg)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Entries(ctx, journal.KindLifecycle)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, value.OfString("Configured").Equal(entries[0].Value))
}

func TestUnbatchedRepository(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 0
	cfg.BatchTimeout = 0

	j, err := journal.NewService(cfg)
	require.NoError(t, err)

	require.NoError(t, j.Record(context.Background(), &journal.Entry{Kind: journal.KindEvent, Value: value.OfInt(1)}))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
}
