package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dray/internal/logger"
	"dray/internal/publishers"
	"dray/internal/xray/parser"
)

type Publisher struct{}

// Publish writes the subscription to params["path"], replacing the file
// through a rename so readers never see a partial body.
func (p *Publisher) Publish(_ context.Context, servers []*parser.Descriptor, params map[string]interface{}) error {
	path, _ := params["path"].(string)
	if path == "" {
		return fmt.Errorf("file publisher requires path")
	}
	payload, err := publishers.GenerateSubscriptionPayload(servers, params)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".dray-sub-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	logger.Log.Debugf("File publisher wrote %d bytes to %s", len(payload), path)
	return nil
}

func init() {
	publishers.Register("file", func() publishers.Publisher { return &Publisher{} })
}
