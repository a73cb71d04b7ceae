package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// filePrefix starts every log file name: qumi-2025-W40.log, qumi-2025-W40_01.log
const filePrefix = "qumi-"

var logFileRegex = regexp.MustCompile(`^qumi-(\d{4}-W\d{2})(?:_(\d{2}))?\.log$`)

// RotationPolicy says where log files go and when they roll over
type RotationPolicy struct {
	Dir            string
	RetentionWeeks int
	MaxFileSize    int64 // 0 disables size rotation
}

func (p RotationPolicy) retention() time.Duration {
	return time.Duration(p.RetentionWeeks) * 7 * 24 * time.Hour
}

// RotatingLogger is an io.Writer that starts a new file every ISO week and
// whenever the current file would grow past MaxFileSize.
type RotatingLogger struct {
	policy RotationPolicy
	now    func() time.Time

	mu     sync.Mutex
	file   *os.File
	week   string
	seq    int
	size   int64
	closed bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRotatingLogger creates a rotating logger. No file is opened before the
// first write.
func NewRotatingLogger(policy RotationPolicy) *RotatingLogger {
	return &RotatingLogger{
		policy: policy,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func fileName(week string, seq int) string {
	if seq == 0 {
		return filePrefix + week + ".log"
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, seq)
}

// latest returns the highest sequence number on disk for a week and its size
func (rl *RotatingLogger) latest(week string) (int, int64) {
	entries, err := os.ReadDir(rl.policy.Dir)
	if err != nil {
		return 0, 0
	}

	seq, size := -1, int64(0)
	for _, e := range entries {
		m := logFileRegex.FindStringSubmatch(e.Name())
		if m == nil || m[1] != week {
			continue
		}
		n := 0
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
		if n > seq {
			seq = n
			size = 0
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
		}
	}
	if seq < 0 {
		return 0, 0
	}
	return seq, size
}

// open switches to the file for week and seq (caller holds mu)
func (rl *RotatingLogger) open(week string, seq int) error {
	if rl.file != nil {
		if err := rl.file.Close(); err != nil {
			slog.Warn("Failed to close log file during rotation", "error", err)
		}
		rl.file = nil
	}

	path := filepath.Join(rl.policy.Dir, fileName(week, seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file %s: %w", path, err)
	}

	rl.file, rl.week, rl.seq, rl.size = f, week, seq, info.Size()
	return nil
}

func (rl *RotatingLogger) full(next int64) bool {
	max := rl.policy.MaxFileSize
	return max > 0 && rl.size > 0 && rl.size+next > max
}

// Write appends p to the current file, rotating first when needed
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.closed {
		return 0, errors.New("rotating logger is closed")
	}

	week := weekKey(rl.now())
	switch {
	case rl.file == nil || rl.week != week:
		seq, size := rl.latest(week)
		if rl.policy.MaxFileSize > 0 && size > 0 && size+int64(len(p)) > rl.policy.MaxFileSize {
			seq++
		}
		if err := rl.open(week, seq); err != nil {
			return 0, err
		}
	case rl.full(int64(len(p))):
		if err := rl.open(week, rl.seq+1); err != nil {
			return 0, err
		}
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// CurrentFile returns the path being written, "" before the first write
func (rl *RotatingLogger) CurrentFile() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return ""
	}
	return rl.file.Name()
}

// cleanupOldLogs removes log files not modified within the retention period.
// It returns how many files were removed.
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.policy.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rl.now().Add(-rl.policy.retention())
	current := rl.CurrentFile()
	removed := 0

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		path := filepath.Join(rl.policy.Dir, e.Name())
		if path == current {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// startCleanup removes expired files every interval until Close
func (rl *RotatingLogger) startCleanup(interval time.Duration) {
	rl.wg.Add(1)
	go func() {
		defer rl.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				if _, err := rl.cleanupOldLogs(); err != nil {
					// Console only: the file handler would write back into this logger
					fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
				}
			}
		}
	}()
}

// Close stops the cleanup loop and closes the current file. Later writes fail.
func (rl *RotatingLogger) Close() error {
	rl.mu.Lock()
	if rl.closed {
		rl.mu.Unlock()
		return nil
	}
	rl.closed = true
	close(rl.stop)
	rl.mu.Unlock()

	rl.wg.Wait()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}

// newLogger logs text to the console and JSON to the rotating files. When the
// log directory is unusable it falls back to the console alone.
func newLogger(policy RotationPolicy, consoleLevel, fileLevel slog.Level) (*slog.Logger, *RotatingLogger) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel})

	if err := os.MkdirAll(policy.Dir, 0755); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory", "dir", policy.Dir, "error", err)
		return logger, nil
	}

	rl := NewRotatingLogger(policy)
	// Open the first file now so permission problems surface at startup
	if _, err := rl.Write(nil); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to initialize rotating logger", "error", err)
		return logger, nil
	}
	rl.startCleanup(24 * time.Hour)

	fileHandler := slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: fileLevel})
	return slog.New(&fanoutHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rl
}

// fanoutHandler sends each record to every handler that accepts its level
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
