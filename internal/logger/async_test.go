package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// sink records what reaches it, including attrs added through WithAttrs.
type sink struct {
	mu    sync.Mutex
	recs  []slog.Record
	attrs []slog.Attr
	delay time.Duration
	root  *sink
}

func (s *sink) owner() *sink {
	if s.root != nil {
		return s.root
	}
	return s
}

func (s *sink) Enabled(context.Context, slog.Level) bool { return true }

func (s *sink) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	rec.AddAttrs(s.attrs...)
	o := s.owner()
	o.mu.Lock()
	o.recs = append(o.recs, rec)
	o.mu.Unlock()
	return nil
}

func (s *sink) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sink{attrs: append(append([]slog.Attr{}, s.attrs...), attrs...), delay: s.delay, root: s.owner()}
}

func (s *sink) WithGroup(string) slog.Handler { return s }

func (s *sink) records() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]slog.Record(nil), s.recs...)
}

func attr(rec slog.Record, key string) (string, bool) {
	var val string
	var found bool
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			val, found = a.Value.String(), true
			return false
		}
		return true
	})
	return val, found
}

func info(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}

func TestAsyncHandler_FlushOnClose(t *testing.T) {
	s := &sink{}
	ah := NewAsyncHandler(s, 1000, 2)

	const total = 200
	for range total {
		if err := ah.Handle(context.Background(), info("event published")); err != nil {
			t.Fatalf("Handle returned error: %v", err)
		}
	}
	ah.Close()

	if got := len(s.records()); got != total {
		t.Fatalf("expected %d records after close, got %d", total, got)
	}
	if ah.DroppedCount() != 0 {
		t.Fatalf("expected no drops, got %d", ah.DroppedCount())
	}
}

func TestAsyncHandler_ConcurrentAgents(t *testing.T) {
	s := &sink{}
	ah := NewAsyncHandler(s, 4000, 4)

	agents := []string{"triage", "research", "review", "presentation"}
	var wg sync.WaitGroup
	for _, name := range agents {
		l := slog.New(ah).With("agent", name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				l.Info("task completed")
			}
		}()
	}
	wg.Wait()
	ah.Close()

	perAgent := map[string]int{}
	for _, rec := range s.records() {
		name, _ := attr(rec, "agent")
		perAgent[name]++
	}
	for _, name := range agents {
		if perAgent[name] != 500 {
			t.Fatalf("expected 500 records for %s, got %d", name, perAgent[name])
		}
	}
}

func TestAsyncHandler_DerivedAttrsSurvive(t *testing.T) {
	s := &sink{}
	ah := NewAsyncHandler(s, 10, 1)

	slog.New(ah).With("service", "a2a-server").Info("server starting")
	ah.Close()

	recs := s.records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if v, ok := attr(recs[0], "service"); !ok || v != "a2a-server" {
		t.Fatalf("expected service attr on derived record, got %q (found %v)", v, ok)
	}
}

func TestAsyncHandler_FullQueueDropsAndReports(t *testing.T) {
	s := &sink{delay: 10 * time.Millisecond}
	ah := NewAsyncHandler(s, 1, 1)

	for range 50 {
		_ = ah.Handle(context.Background(), info("flood"))
	}
	ah.Close()

	dropped := ah.DroppedCount()
	if dropped == 0 {
		t.Fatal("expected some records to be dropped, got 0")
	}

	recs := s.records()
	last := recs[len(recs)-1]
	if last.Level != slog.LevelWarn || last.Message != "async logger dropped records" {
		t.Fatalf("expected drop report as last record, got %s %q", last.Level, last.Message)
	}
	if v, _ := attr(last, "dropped"); v == "0" || v == "" {
		t.Fatalf("expected dropped count in report, got %q", v)
	}
}

func TestAsyncHandler_AfterClose(t *testing.T) {
	s := &sink{}
	ah := NewAsyncHandler(s, 10, 1)
	ah.Close()
	ah.Close()

	if err := ah.Handle(context.Background(), info("late")); err != nil {
		t.Fatalf("expected nil error after close, got %v", err)
	}
	if ah.DroppedCount() != 1 {
		t.Fatalf("expected late record counted as dropped, got %d", ah.DroppedCount())
	}
	if got := len(s.records()); got != 0 {
		t.Fatalf("expected nothing written after close, got %d", got)
	}
}
