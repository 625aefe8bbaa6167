package calc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(path, defaultTableYAML, 0o600))

	n := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, n, nil)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	custom := strings.Replace(string(defaultTableYAML), "source: gsa-calc", "source: gsa-test", 1)
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	assert.Eventually(t, func() bool {
		return n.Table().Source == "gsa-test"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "fields.yaml"), New(), nil)
	assert.Error(t, err)
}

func TestWatch_InvalidTableReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(path, defaultTableYAML, 0o600))

	n := New()
	before := n.Table()
	errs := make(chan error, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = Watch(ctx, path, n, func(_ *Table, err error) {
			select {
			case errs <- err:
			default:
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("version: 9\n"), 0o600))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload attempt observed")
	}
	assert.Same(t, before, n.Table())
}
