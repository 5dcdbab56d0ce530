package a2a

import (
	"encoding/json"
	"net/http"

	a2asdk "github.com/a2aproject/a2a-go/a2a"
	"github.com/go-chi/chi/v5"
)

// CardPath is the well-known agent card location.
const CardPath = "/.well-known/agent-card.json"

// Handler serves one agent's card.
type Handler struct {
	card a2asdk.AgentCard
}

// NewHandler creates a card handler.
func NewHandler(card a2asdk.AgentCard) *Handler {
	return &Handler{card: card}
}

// Card returns the served card.
func (h *Handler) Card() a2asdk.AgentCard { return h.card }

// MountRoutes registers the card routes on r. The legacy agent.json path is
// kept for older clients.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(CardPath, h.handleAgentCard)
	r.Get("/.well-known/agent.json", h.handleAgentCard)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.card)
}
