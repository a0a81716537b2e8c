package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, opts ...Option) (*atomic.Int32, chan struct{}) {
	t.Helper()
	w, err := New(root, append([]Option{WithDebounce(20 * time.Millisecond)}, opts...)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	fired := make(chan struct{}, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(context.Context) error {
			calls.Add(1)
			fired <- struct{}{}
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return &calls, fired
}

func waitFired(t *testing.T, fired chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change handler was not called")
	}
}

func TestWatcher_WriteTriggersCallback(t *testing.T) {
	root := t.TempDir()
	_, fired := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "Button.vue"), []byte("<template/>"), 0o644))
	waitFired(t, fired)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	calls, fired := startWatcher(t, root, WithDebounce(200*time.Millisecond))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.vue"), []byte{byte('a' + i)}, 0o644))
	}
	waitFired(t, fired)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	_, fired := startWatcher(t, root)

	sub := filepath.Join(root, "components")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFired(t, fired)

	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "Card.vue"), []byte("<template/>"), 0o644))
	waitFired(t, fired)
}

func TestWatcher_ExcludedDirectoryIgnored(t *testing.T) {
	root := t.TempDir()
	nm := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(nm, 0o755))
	calls, _ := startWatcher(t, root, WithExclude("node_modules"))

	require.NoError(t, os.WriteFile(filepath.Join(nm, "lib.js"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestWatcher_Excluded(t *testing.T) {
	w := &Watcher{root: "/p", exclude: []string{"dist"}}
	assert.True(t, w.excluded("/p/dist/app.js"))
	assert.True(t, w.excluded("/p/src/.cache/x.vue"))
	assert.False(t, w.excluded("/p/src/App.vue"))
	assert.False(t, w.excluded("/p"))
}
