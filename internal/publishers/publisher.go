package publishers

import (
	"context"
	"fmt"

	"dray/internal/xray/parser"
)

// Publisher delivers a subscription built from servers somewhere. params
// come from the YAML config plus the injected "_proxy_url", "_timeout" and
// "_country" entries.
type Publisher interface {
	Publish(ctx context.Context, servers []*parser.Descriptor, params map[string]interface{}) error
}

type Factory func() Publisher

var registry = make(map[string]Factory)

func Register(name string, factory Factory) {
	registry[name] = factory
}

func Get(name string) (Publisher, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("publisher plugin '%s' not found", name)
	}
	return factory(), nil
}
