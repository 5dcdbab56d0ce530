// Package a2a builds and serves the agent cards that describe each pipeline
// agent to A2A clients.
package a2a

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	a2asdk "github.com/a2aproject/a2a-go/a2a"
)

// ProtocolVersion is the A2A protocol version the cards advertise.
const ProtocolVersion = "0.3.0"

// CardVersion is the version every built-in card reports.
const CardVersion = "0.1.0"

type skillInfo struct {
	description string
	skill       a2asdk.AgentSkill
}

var builtins = map[string]skillInfo{
	"triage": {
		description: "Classifies a request and routes it to the research chain or straight to slides",
		skill: a2asdk.AgentSkill{
			ID:          "route-request",
			Name:        "Route Request",
			Description: "Decide whether a prompt needs medical research before slides are generated",
			Tags:        []string{"routing", "classification"},
			Examples:    []string{"Create a presentation about diabetes"},
		},
	},
	"research": {
		description: "Researches a medical topic and returns a structured summary",
		skill: a2asdk.AgentSkill{
			ID:          "medical-research",
			Name:        "Medical Research",
			Description: "Summary, key points, risk factors and audience tone for a medical query",
			Tags:        []string{"medical", "research", "summary"},
			Examples:    []string{"Latest treatment options for type 2 diabetes"},
		},
	},
	"review": {
		description: "Reviews a research summary for a patient audience",
		skill: a2asdk.AgentSkill{
			ID:          "patient-review",
			Name:        "Patient-Friendly Review",
			Description: "Rewrite a summary in plain language and score its friendliness",
			Tags:        []string{"review", "tone"},
		},
	},
	"presentation": {
		description: "Turns content into a slide deck",
		skill: a2asdk.AgentSkill{
			ID:          "generate-slides",
			Name:        "Generate Slides",
			Description: "Generate a presentation and return its link",
			Tags:        []string{"slides", "gamma"},
		},
	},
}

// BuildAgentCard returns the built-in card for agent served at baseURL.
func BuildAgentCard(agent, baseURL string) a2asdk.AgentCard {
	info, ok := builtins[agent]
	if !ok {
		info = skillInfo{
			description: "A2A pipeline agent",
			skill:       a2asdk.AgentSkill{ID: agent, Name: agent, Description: "Process a text message"},
		}
	}
	return a2asdk.AgentCard{
		Name:               agent,
		Description:        info.description,
		URL:                baseURL,
		Version:            CardVersion,
		ProtocolVersion:    ProtocolVersion,
		Capabilities:       a2asdk.AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             []a2asdk.AgentSkill{info.skill},
	}
}

// LoadAgentCard reads <dir>/<agent>.json. A missing file or empty dir falls
// back to the built-in card. A card without a URL gets baseURL.
func LoadAgentCard(dir, agent, baseURL string) (a2asdk.AgentCard, error) {
	if dir == "" {
		return BuildAgentCard(agent, baseURL), nil
	}

	path := filepath.Join(dir, agent+".json")
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is built from configured dir and known agent names
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return BuildAgentCard(agent, baseURL), nil
		}
		return a2asdk.AgentCard{}, fmt.Errorf("read agent card %s: %w", path, err)
	}

	var card a2asdk.AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return a2asdk.AgentCard{}, fmt.Errorf("parse agent card %s: %w", path, err)
	}
	if card.URL == "" {
		card.URL = baseURL
	}
	return card, nil
}
