package lock

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jathurchan/lockdir/clock"
	"github.com/jathurchan/lockdir/logger"
)

// mockClock is a manually advanced clock. After fires immediately so retry
// backoff does not slow tests down; timers fire when Advance crosses their
// deadline.
type mockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	timers      []*mockTimer
}

func newMockClock() *mockClock {
	return &mockClock{currentTime: time.Now()}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *mockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *mockClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

func (c *mockClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{
		clk:      c,
		ch:       make(chan time.Time, 1),
		deadline: c.currentTime.Add(d),
		active:   true,
	}
	c.timers = append(c.timers, t)
	return t
}

func (c *mockClock) NewTicker(d time.Duration) clock.Ticker { return nil }

// Advance moves the clock forward and fires every active timer whose
// deadline has been reached.
func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(d)
	now := c.currentTime
	var due []*mockTimer
	for _, t := range c.timers {
		if t.active && !t.deadline.After(now) {
			t.active = false
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		select {
		case t.ch <- now:
		default:
		}
	}
}

type mockTimer struct {
	clk      *mockClock
	ch       chan time.Time
	deadline time.Time
	active   bool
}

func (t *mockTimer) Chan() <-chan time.Time { return t.ch }

func (t *mockTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *mockTimer) Reset(d time.Duration) bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := t.active
	t.deadline = t.clk.currentTime.Add(d)
	t.active = true
	return was
}

// mockFileInfo backs mockFS.Stat.
type mockFileInfo struct {
	name  string
	mtime time.Time
	dir   bool
}

func (i mockFileInfo) Name() string       { return i.name }
func (i mockFileInfo) Size() int64        { return 0 }
func (i mockFileInfo) Mode() fs.FileMode  { return 0o755 }
func (i mockFileInfo) ModTime() time.Time { return i.mtime }
func (i mockFileInfo) IsDir() bool        { return i.dir }
func (i mockFileInfo) Sys() any           { return nil }

// mockFS is an in-memory FileSystem with per-operation error injection and
// an operation counter, so tests can assert on (the absence of) filesystem
// round-trips.
type mockFS struct {
	mu       sync.Mutex
	dirs     map[string]time.Time // path -> mtime
	files    map[string][]byte
	errs     map[string]error   // "op path" -> injected error
	errsOnce map[string][]error // "op path" -> queue of one-shot errors
	ops      int
}

func newMockFS() *mockFS {
	return &mockFS{
		dirs:     make(map[string]time.Time),
		files:    make(map[string][]byte),
		errs:     make(map[string]error),
		errsOnce: make(map[string][]error),
	}
}

// setErr injects an error for every future call of op on path until cleared
// with a nil err.
func (f *mockFS) setErr(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op+" "+path)
		return
	}
	f.errs[op+" "+path] = err
}

// setErrOnce injects an error for a single future call of op on path.
// Multiple calls queue up in order.
func (f *mockFS) setErrOnce(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + " " + path
	f.errsOnce[key] = append(f.errsOnce[key], err)
}

func (f *mockFS) opCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops
}

func (f *mockFS) setDirMtime(path string, mtime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = mtime
}

func (f *mockFS) dirMtime(path string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.dirs[path]
	return t, ok
}

func (f *mockFS) setFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
}

func (f *mockFS) fileContent(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	return data, ok
}

func (f *mockFS) dirExists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.dirs[path]
	return ok
}

func (f *mockFS) begin(op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops++
	key := op + " " + path
	if q := f.errsOnce[key]; len(q) > 0 {
		err := q[0]
		f.errsOnce[key] = q[1:]
		return err
	}
	if err, ok := f.errs[key]; ok {
		return err
	}
	return nil
}

func pathErr(op, path string, err error) error {
	return &fs.PathError{Op: op, Path: path, Err: err}
}

func (f *mockFS) Mkdir(path string) error {
	if err := f.begin("mkdir", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[path]; ok {
		return pathErr("mkdir", path, fs.ErrExist)
	}
	if _, ok := f.files[path]; ok {
		return pathErr("mkdir", path, fs.ErrExist)
	}
	f.dirs[path] = time.Now()
	return nil
}

func (f *mockFS) Stat(path string) (fs.FileInfo, error) {
	if err := f.begin("stat", path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if mtime, ok := f.dirs[path]; ok {
		return mockFileInfo{name: filepathBase(path), mtime: mtime, dir: true}, nil
	}
	if _, ok := f.files[path]; ok {
		return mockFileInfo{name: filepathBase(path)}, nil
	}
	return nil, pathErr("stat", path, fs.ErrNotExist)
}

func (f *mockFS) Chtimes(path string, atime, mtime time.Time) error {
	if err := f.begin("chtimes", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[path]; !ok {
		return pathErr("chtimes", path, fs.ErrNotExist)
	}
	f.dirs[path] = mtime
	return nil
}

func (f *mockFS) ReadFile(path string) ([]byte, error) {
	if err := f.begin("read", path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, pathErr("read", path, fs.ErrNotExist)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *mockFS) WriteFile(path string, data []byte) error {
	if err := f.begin("write", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = append([]byte(nil), data...)
	return nil
}

func (f *mockFS) Remove(path string) error {
	if err := f.begin("remove", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; ok {
		delete(f.files, path)
		return nil
	}
	if _, ok := f.dirs[path]; ok {
		for p := range f.files {
			if strings.HasPrefix(p, path+"/") {
				return pathErr("remove", path, fs.ErrInvalid)
			}
		}
		delete(f.dirs, path)
		return nil
	}
	return pathErr("remove", path, fs.ErrNotExist)
}

func filepathBase(p string) string { return path.Base(p) }

// testEnv bundles a Manager wired to mocks.
type testEnv struct {
	manager *Manager
	fs      *mockFS
	clock   *mockClock
	metrics *InMemoryMetrics
}

func newTestEnv() *testEnv {
	fs := newMockFS()
	clk := newMockClock()
	metrics := NewInMemoryMetrics()

	var tokenSeq atomic.Uint64
	m := NewManager(
		WithFileSystem(fs),
		WithClock(clk),
		WithMetrics(metrics),
		WithLogger(logger.NewNoOpLogger()),
		WithTokenFunc(func() string {
			return fmt.Sprintf("token-%d", tokenSeq.Add(1))
		}),
	)
	return &testEnv{manager: m, fs: fs, clock: clk, metrics: metrics}
}

// noSymlinks disables symlink resolution so tests can lock paths that do
// not exist on the real filesystem.
func noSymlinks(opts ...AcquireOption) []AcquireOption {
	return append([]AcquireOption{WithResolveSymlinks(false)}, opts...)
}
