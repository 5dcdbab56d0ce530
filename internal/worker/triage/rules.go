package triage

import (
	"context"
	"regexp"
	"strings"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
)

// skipPhrases ask for slides without a research pass.
var skipPhrases = []string{
	"skip research",
	"skip the research",
	"no research",
	"without research",
	"presentation only",
	"slides only",
	"just the slides",
	"just make slides",
	"content is ready",
	"ready-made content",
}

var (
	explicitRoute = regexp.MustCompile(`"?route"?\s*[:=]\s*"?presentation"?`)
	slideMarker   = regexp.MustCompile(`(?i)^(slide\s*\d+\s*[:.\-]|#{1,3}\s+\S|[-*•]\s+\S|\d+[.)]\s+\S)`)
)

// minSlideLines is how many slide-like lines make a prompt ready-made content.
const minSlideLines = 3

// Classify picks a route from the prompt text. Research is the default; the
// presentation route needs an explicit request or ready-made slide content.
func Classify(prompt string) service.Route {
	lower := strings.ToLower(prompt)
	if explicitRoute.MatchString(lower) {
		return service.RoutePresentation
	}
	for _, p := range skipPhrases {
		if strings.Contains(lower, p) {
			return service.RoutePresentation
		}
	}
	if isSlideContent(prompt) {
		return service.RoutePresentation
	}
	return service.RouteResearch
}

func isSlideContent(prompt string) bool {
	n := 0
	for line := range strings.Lines(prompt) {
		if slideMarker.MatchString(strings.TrimSpace(line)) {
			n++
		}
	}
	return n >= minSlideLines
}

// Rules is the keyword classifier. It never fails.
type Rules struct{}

// Run classifies input.
func (Rules) Run(_ context.Context, input string, progress worker.Reporter) (worker.Result, error) {
	progress.Artifact(task.Artifact{"note": "Triaging request"})
	return Routed(Classify(input)), nil
}
