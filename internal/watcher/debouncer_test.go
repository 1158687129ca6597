package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

// =============================================================================
// coalesce
// =============================================================================

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name   string
		first  Operation
		next   Operation
		want   Operation
		wantOK bool
	}{
		{"create then modify stays create", OpCreate, OpModify, OpCreate, true},
		{"create then delete cancels", OpCreate, OpDelete, 0, false},
		{"modify then delete is delete", OpModify, OpDelete, OpDelete, true},
		{"delete then create is modify", OpDelete, OpCreate, OpModify, true},
		{"modify then modify is modify", OpModify, OpModify, OpModify, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coalesce(tt.first, FileEvent{Path: "a.md", Operation: tt.next})
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.Operation)
			}
		})
	}
}

// =============================================================================
// Debouncer
// =============================================================================

func TestDebouncer_BatchesAfterQuietWindow(t *testing.T) {
	// Given
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// When
	d.Add(FileEvent{Path: "b.md", Operation: OpModify})
	d.Add(FileEvent{Path: "a.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "a.md", Operation: OpModify})

	// Then
	batch := receiveBatch(t, d)
	require.Len(t, batch, 2)
	assert.Equal(t, "a.md", batch[0].Path)
	assert.Equal(t, OpCreate, batch[0].Operation)
	assert.Equal(t, "b.md", batch[1].Path)
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_CancelledPathIsDropped(t *testing.T) {
	// Given
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// When
	d.Add(FileEvent{Path: "tmp.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "tmp.md", Operation: OpDelete})
	d.Add(FileEvent{Path: "keep.md", Operation: OpModify})

	// Then
	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "keep.md", batch[0].Path)
}

func TestDebouncer_StopDiscardsPending(t *testing.T) {
	// Given
	d := NewDebouncer(time.Hour)
	d.Add(FileEvent{Path: "a.md", Operation: OpModify})
	require.Equal(t, 1, d.Pending())

	// When
	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "b.md", Operation: OpModify})

	// Then
	_, ok := <-d.Output()
	assert.False(t, ok, "output should be closed")
}
