package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/service"
)

// printer writes human-readable output on a terminal and JSON otherwise.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, forceJSON bool) *printer {
	p := &printer{w: w, json: forceJSON}
	if f, ok := w.(*os.File); ok && !term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		p.json = true
	}
	return p
}

func (p *printer) value(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stage prints one finished pipeline stage. In JSON mode stages are not
// printed individually; the whole result is printed at the end.
func (p *printer) stage(s service.Stage) {
	if p.json {
		return
	}
	meta := ""
	if fb, _ := s.Response.Metadata["fallback"].(bool); fb {
		meta = " (fallback)"
	}
	_, _ = fmt.Fprintf(p.w, "==> %s%s  task %s\n%s\n\n", s.Agent, meta, s.Response.TaskID, indent(s.Response.Message.Content))
}

func (p *printer) result(res *service.PipelineResult) error {
	if p.json {
		return p.value(res)
	}
	_, _ = fmt.Fprintf(p.w, "route %s, %d stages, context %s\n", res.Route, len(res.Stages), res.ContextID)
	return nil
}

func (p *printer) event(agent string, ev task.Event) error {
	if p.json {
		return json.NewEncoder(p.w).Encode(struct {
			Agent string `json:"agent,omitempty"`
			task.Event
		}{agent, ev})
	}
	prefix := ""
	if agent != "" {
		prefix = "[" + agent + "] "
	}
	ts := ev.Timestamp.Format("15:04:05.000")
	switch ev.Kind {
	case task.KindArtifact:
		_, _ = fmt.Fprintf(p.w, "%s%s #%d artifact %s\n", prefix, ts, ev.Seq, artifactLine(ev.Artifact))
	default:
		line := fmt.Sprintf("%s%s #%d %s", prefix, ts, ev.Seq, ev.State)
		if ev.Detail != "" {
			line += ": " + ev.Detail
		}
		_, _ = fmt.Fprintln(p.w, line)
	}
	return nil
}

func artifactLine(a task.Artifact) string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return strings.Join(parts, " ")
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    ")
}
