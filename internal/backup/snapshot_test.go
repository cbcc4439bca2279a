package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu      sync.Mutex
	trades  []models.Trade
	version uint64
}

func (f *fakeSource) List() []models.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Trade(nil), f.trades...)
}

func (f *fakeSource) Version() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeSource) add(t models.Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append([]models.Trade{t}, f.trades...)
	f.version++
}

func TestSnapshotIfChanged(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{}
	source.add(models.Trade{ID: 1, Symbol: "AAPL", Status: models.TradeStatusClosed, PnL: 95, ROI: 9.5})

	s := NewSnapshotter(source, dir, time.Minute, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC) }

	path, err := s.SnapshotIfChanged()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trades-20240105-103000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var trades []models.Trade
	require.NoError(t, json.Unmarshal(data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, models.Percent(9.5), trades[0].ROI)

	path, err = s.SnapshotIfChanged()
	require.NoError(t, err)
	assert.Empty(t, path, "unchanged journal is not snapshotted again")

	source.add(models.Trade{ID: 2, Symbol: "MSFT"})
	s.now = func() time.Time { return time.Date(2024, 1, 5, 10, 35, 0, 0, time.UTC) }
	path, err = s.SnapshotIfChanged()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trades-20240105-103500.json"), path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteSnapshot_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	s := NewSnapshotter(&fakeSource{}, file, time.Minute, zap.NewNop())
	_, err := s.WriteSnapshot(nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create backup dir")
}

func TestRun_WritesFinalSnapshotOnShutdown(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{}
	source.add(models.Trade{ID: 1, Symbol: "AAPL"})
	s := NewSnapshotter(source, dir, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
