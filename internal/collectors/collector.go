package collectors

import (
	"context"
	"fmt"
	"sort"
)

// Collector fetches raw share-links from one kind of source. params come
// straight from the YAML config; "_proxy_url", when present, is the local
// proxy the source should be reached through.
type Collector interface {
	Collect(ctx context.Context, params map[string]interface{}) ([]string, error)
}

type Factory func() Collector

var registry = make(map[string]Factory)

func Register(name string, factory Factory) {
	registry[name] = factory
}

func Get(name string) (Collector, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("collector plugin '%s' not found", name)
	}
	return factory(), nil
}

// Names lists the registered collector types.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String reads a string param, or "" when absent or of another type.
func String(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

// Int reads an integer param. YAML may decode numbers as int, int64 or
// float64.
func Int(params map[string]interface{}, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func Bool(params map[string]interface{}, key string) bool {
	b, _ := params[key].(bool)
	return b
}
