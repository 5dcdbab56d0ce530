package httpagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	a2asdk "github.com/a2aproject/a2a-go/a2a"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/A2APipeline/internal/port/a2a"
	"github.com/Strob0t/A2APipeline/internal/port/cache"
)

// DefaultCardTTL is how long fetched cards stay cached.
const DefaultCardTTL = 5 * time.Minute

// SetCardCache enables caching of fetched agent cards.
func (c *Client) SetCardCache(cc cache.Cache, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCardTTL
	}
	c.cards = cc
	c.cardTTL = ttl
}

func (c *Client) cardKey() string { return "agent-card:" + c.baseURL }

// Card fetches the agent's card, using the card cache when one is set.
func (c *Client) Card(ctx context.Context) (a2asdk.AgentCard, error) {
	if c.cards != nil {
		if data, ok, err := c.cards.Get(ctx, c.cardKey()); err == nil && ok {
			var card a2asdk.AgentCard
			if err := json.Unmarshal(data, &card); err == nil {
				return card, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ResubscribeTimeout)
	defer cancel()

	data, err := c.doRequest(ctx, http.MethodGet, a2a.CardPath, nil)
	if err != nil {
		return a2asdk.AgentCard{}, fmt.Errorf("%s card: %w", c.name, err)
	}

	var card a2asdk.AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return a2asdk.AgentCard{}, fmt.Errorf("%s card: unmarshal: %w", c.name, err)
	}

	if c.cards != nil {
		if err := c.cards.Set(ctx, c.cardKey(), data, c.cardTTL); err != nil {
			slog.Debug("agent card not cached", "agent", c.name, "error", err)
		}
	}
	return card, nil
}

// Mismatches lists the ways card falls short of what the orchestrator needs
// from the agent called name.
func Mismatches(name string, card a2asdk.AgentCard) []string {
	var out []string
	if card.Name != "" && card.Name != name {
		out = append(out, fmt.Sprintf("card name %q does not match agent %q", card.Name, name))
	}
	if !card.Capabilities.Streaming {
		out = append(out, "agent does not advertise streaming")
	}
	if len(card.Skills) == 0 {
		out = append(out, "agent advertises no skills")
	}
	return out
}

// Discover fetches every client's card concurrently. Cards that could be
// fetched are returned even when others failed; the failures are joined
// into the returned error. Capability mismatches are logged, not returned.
func Discover(ctx context.Context, clients ...*Client) (map[string]a2asdk.AgentCard, error) {
	var (
		mu    sync.Mutex
		cards = make(map[string]a2asdk.AgentCard, len(clients))
		errs  []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range clients {
		g.Go(func() error {
			card, err := c.Card(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			cards[c.name] = card
			for _, m := range Mismatches(c.name, card) {
				slog.Warn("agent capability mismatch", "agent", c.name, "url", c.baseURL, "issue", m)
			}
			return nil
		})
	}
	_ = g.Wait()

	return cards, errors.Join(errs...)
}
