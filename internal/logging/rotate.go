package logging

import (
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DailyWriter rotates the underlying lumberjack file on the first write of
// each calendar day.
type DailyWriter struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	day string
	now func() time.Time
}

// NewDailyWriter wraps out. now defaults to time.Now. An existing log file
// counts as written on its modification day, so a restart on a later day
// rotates it before the first write.
func NewDailyWriter(out *lumberjack.Logger, now func() time.Time) *DailyWriter {
	if now == nil {
		now = time.Now
	}
	w := &DailyWriter{out: out, now: now}
	if fi, err := os.Stat(out.Filename); err == nil && fi.Size() > 0 {
		w.day = fi.ModTime().In(now().Location()).Format(time.DateOnly)
	}
	return w
}

func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := w.now().Format(time.DateOnly)
	if w.day != "" && w.day != today {
		if err := w.out.Rotate(); err != nil {
			return 0, err
		}
	}
	w.day = today
	return w.out.Write(p)
}

func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}
