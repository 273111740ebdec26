package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"dray/internal/publishers"
	"dray/internal/xray/parser"
)

type Publisher struct {
	out io.Writer
}

func (p *Publisher) Publish(_ context.Context, servers []*parser.Descriptor, params map[string]interface{}) error {
	payload, err := publishers.GenerateSubscriptionPayload(servers, params)
	if err != nil {
		return err
	}
	out := p.out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintln(out, payload)
	return err
}

func init() {
	publishers.Register("stdout", func() publishers.Publisher { return &Publisher{} })
}
