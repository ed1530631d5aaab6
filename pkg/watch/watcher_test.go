package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qrdecryptor/qrdecryptor/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"code.png", true},
		{"CODE.JPG", true},
		{"photo.jpeg", true},
		{"scan.webp", true},
		{"scan.tiff", true},
		{"notes.txt", false},
		{".hidden.png", false},
		{"code.png~", false},
		{"code.png.part", false},
		{"code.png.crdownload", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidate(tt.name))
		})
	}
}

type recorder struct {
	mu    sync.Mutex
	paths []string
	got   chan string
}

func newRecorder() *recorder {
	return &recorder{got: make(chan string, 8)}
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.got <- path
}

// startWatcher runs a watcher on dir and returns a func that stops it
func startWatcher(t *testing.T, dir string, v *security.Validator, r *recorder) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(dir, 20*time.Millisecond, v, r.handle)

	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// fsnotify registration races the first write
	time.Sleep(50 * time.Millisecond)

	return func() {
		cancel()
		require.NoError(t, <-errc)
	}
}

func TestWatcher_HandlesDroppedImageOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	r := newRecorder()
	stop := startWatcher(t, dir, security.NewValidator(1<<20, 1<<20, 100), r)
	defer stop()

	path := filepath.Join(dir, "code.png")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644))

	select {
	case got := <-r.got:
		assert.Equal(t, "code.png", filepath.Base(got))
	case <-time.After(2 * time.Second):
		t.Fatal("dropped file was not handled")
	}

	select {
	case got := <-r.got:
		t.Fatalf("unexpected second dispatch for %s", got)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_RejectsEscapingSymlink(t *testing.T) {
	outside := filepath.Join(t.TempDir(), "secret.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	dir := t.TempDir()
	r := newRecorder()
	stop := startWatcher(t, dir, security.NewValidator(1<<20, 1<<20, 100), r)
	defer stop()

	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link.png")))

	select {
	case got := <-r.got:
		t.Fatalf("symlink %s should have been rejected", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), 0, nil, func(context.Context, string) {})
	assert.Error(t, w.Run(context.Background()))
}
