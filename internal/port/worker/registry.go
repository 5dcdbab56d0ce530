package worker

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Factory is a constructor function that creates a new Worker variant.
type Factory func(config map[string]string) (Worker, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

func key(agent, variant string) string { return agent + "/" + variant }

// Register makes a worker variant available for an agent.
// It is typically called from an init() function in the worker package.
func Register(agent, variant string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	k := key(agent, variant)
	if _, exists := factories[k]; exists {
		panic(fmt.Sprintf("worker: duplicate registration for %q", k))
	}
	factories[k] = factory
}

// New creates the named variant of an agent's worker.
func New(agent, variant string, config map[string]string) (Worker, error) {
	mu.RLock()
	factory, ok := factories[key(agent, variant)]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("worker: unknown variant %q for agent %q", variant, agent)
	}
	return factory(config)
}

// Available returns the registered "agent/variant" names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigInt reads an integer factory setting, returning def when the key is
// missing or malformed.
func ConfigInt(config map[string]string, key string, def int) int {
	if n, err := strconv.Atoi(config[key]); err == nil {
		return n
	}
	return def
}

// ConfigDuration reads a duration factory setting such as "2s".
func ConfigDuration(config map[string]string, key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(config[key]); err == nil {
		return d
	}
	return def
}
