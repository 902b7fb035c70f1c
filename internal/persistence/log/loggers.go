package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"beltgrid.ai/internal/sim/world"
)

const hourLayout = "2006-01-02-15"

// segment is one open <prefix>-<hour>.jsonl.zst file.
type segment struct {
	hour string
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	// Reopening an existing hour appends a new zstd frame; readers decode
	// concatenated frames transparently.
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, file: f, zw: zw, buf: bufio.NewWriterSize(zw, 64*1024)}, nil
}

func (s *segment) appendLine(b []byte) error {
	b = append(b, '\n')
	if _, err := s.buf.Write(b); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *segment) close() error {
	flushErr := s.buf.Flush()
	zErr := s.zw.Close()
	fErr := s.file.Close()
	for _, err := range []error{flushErr, zErr, fErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// hourlyLog appends JSON lines to zstd files rotated on the UTC hour.
type hourlyLog struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	cur *segment
}

func (h *hourlyLog) append(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hour := h.now().UTC().Format(hourLayout)
	if h.cur == nil || h.cur.hour != hour {
		if err := h.closeLocked(); err != nil {
			return err
		}
		name := fmt.Sprintf("%s-%s.jsonl.zst", h.prefix, hour)
		seg, err := openSegment(filepath.Join(h.dir, name), hour)
		if err != nil {
			return fmt.Errorf("open tick log: %w", err)
		}
		h.cur = seg
	}
	return h.cur.appendLine(b)
}

func (h *hourlyLog) closeLocked() error {
	if h.cur == nil {
		return nil
	}
	err := h.cur.close()
	h.cur = nil
	return err
}

// TickLogger records one compressed JSON line per tick under <worldDir>/ticks.
// It satisfies world.TickLogger.
type TickLogger struct{ w *hourlyLog }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: &hourlyLog{
		dir:    filepath.Join(worldDir, "ticks"),
		prefix: "ticks",
		now:    time.Now,
	}}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.append(e) }

func (l *TickLogger) Close() error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	return l.w.closeLocked()
}

// TickFiles lists the tick log files in dir, oldest hour first.
func TickFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if n := e.Name(); strings.HasPrefix(n, "ticks-") && strings.HasSuffix(n, ".jsonl.zst") {
			out = append(out, filepath.Join(dir, n))
		}
	}
	// The hour stamp sorts lexically.
	sort.Strings(out)
	return out, nil
}

// ReadTicks decodes the entries of one tick log file in order and hands each
// to fn. It stops at the first error fn returns.
func ReadTicks(path string, fn func(world.TickLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(nil, 16<<20)
	for line := 1; sc.Scan(); line++ {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e world.TickLogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
