package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"bombarena.dev/internal/sim/session"
)

// JSONLZstdWriter appends one JSON document per line to a zstd stream and
// starts a new file every UTC hour.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

var (
	ErrQueueFull = errors.New("tick log queue full")
	ErrClosed    = errors.New("tick log closed")
)

const tickQueue = 8192

// TickLogger records every session's start and tick entries. Entries are
// queued and written by one background goroutine, so callers holding a
// session lock never wait on compression or disk.
type TickLogger struct {
	w *JSONLZstdWriter

	mu     sync.Mutex
	closed bool
	ch     chan session.TickLogEntry
	wg     sync.WaitGroup

	dropped atomic.Uint64
	failed  atomic.Uint64
	errMu   sync.Mutex
	err     error
}

func NewTickLogger(dataDir string) *TickLogger {
	return newTickLogger(NewJSONLZstdWriter(TickDir(dataDir), "ticks"), tickQueue)
}

func newTickLogger(w *JSONLZstdWriter, queue int) *TickLogger {
	l := &TickLogger{w: w, ch: make(chan session.TickLogEntry, queue)}
	l.wg.Add(1)
	go l.loop()
	return l
}

func TickDir(dataDir string) string { return filepath.Join(dataDir, "ticks") }

// WriteTick enqueues e. It never blocks: a full queue drops the entry and
// reports ErrQueueFull.
func (l *TickLogger) WriteTick(e session.TickLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.ch <- e:
		return nil
	default:
		l.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped counts entries rejected because the queue was full.
func (l *TickLogger) Dropped() uint64 { return l.dropped.Load() }

// Failed counts entries the writer could not persist.
func (l *TickLogger) Failed() uint64 { return l.failed.Load() }

// Close drains queued entries, closes the current file and returns the first
// write error seen, if any.
func (l *TickLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()
	l.wg.Wait()

	err := l.w.Close()
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if l.err != nil {
		return l.err
	}
	return err
}

func (l *TickLogger) loop() {
	defer l.wg.Done()
	for e := range l.ch {
		if err := l.w.Write(e); err != nil {
			l.failed.Add(1)
			l.errMu.Lock()
			if l.err == nil {
				l.err = err
			}
			l.errMu.Unlock()
		}
	}
}

// ReadEntries decodes a complete tick log file. A file appended to across
// restarts holds several zstd frames; the decoder reads through all of them.
func ReadEntries(path string) ([]session.TickLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []session.TickLogEntry
	r := bufio.NewReader(dec)
	for line := 1; ; line++ {
		b, err := r.ReadBytes('\n')
		if len(strings.TrimSpace(string(b))) > 0 {
			var e session.TickLogEntry
			if uerr := json.Unmarshal(b, &e); uerr != nil {
				return out, fmt.Errorf("%s:%d: %w", path, line, uerr)
			}
			out = append(out, e)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
}

// ListFiles returns tick log files under dir, oldest first.
func ListFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// SessionEntries filters entries down to one session, in log order.
func SessionEntries(entries []session.TickLogEntry, id string) []session.TickLogEntry {
	var out []session.TickLogEntry
	for _, e := range entries {
		if e.Session == id {
			out = append(out, e)
		}
	}
	return out
}
