// Package importer turns batches of share-links into new server records.
package importer

import (
	"strings"

	"dray/internal/logger"
	"dray/internal/metrics"
	"dray/internal/store"
	"dray/internal/xray/parser"
)

// Result holds the three disjoint outcomes of a batch. Errors, New and
// Duplicates always add up to the number of non-blank lines.
type Result struct {
	Errors     int
	New        int
	Duplicates int
	Added      store.ServerList
}

// Lines splits text into trimmed, non-blank lines.
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Classify parses every line and sorts it into a failure, a duplicate of a
// known hash (including earlier lines of the same batch) or a new record.
// m and progress may be nil.
func Classify(lines []string, known map[string]struct{}, m *metrics.Collector, progress func()) Result {
	seen := make(map[string]struct{}, len(known)+len(lines))
	for h := range known {
		seen[h] = struct{}{}
	}

	var res Result
	for _, line := range lines {
		if progress != nil {
			progress()
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		d, err := parser.Parse(line)
		if err != nil {
			res.Errors++
			logger.Log.Debugf("import: skipping line: %v", err)
			if m != nil {
				m.RecordFailure(err)
			}
			continue
		}
		if _, dup := seen[d.ContentHash]; dup {
			res.Duplicates++
			if m != nil {
				m.RecordDuplicate()
			}
			continue
		}
		seen[d.ContentHash] = struct{}{}
		res.New++
		res.Added = append(res.Added, d)
		if m != nil {
			m.RecordNew(string(d.Protocol))
		}
	}
	return res
}

type Importer struct {
	store   *store.Store
	metrics *metrics.Collector

	// OnLine, when set, is called once per input line.
	OnLine func()
}

func New(s *store.Store, m *metrics.Collector) *Importer {
	if m == nil {
		m = metrics.New()
	}
	return &Importer{store: s, metrics: m}
}

func (im *Importer) Metrics() *metrics.Collector { return im.metrics }

// Import classifies text line by line and, when anything new was found,
// writes the server list back once with the new records in front.
func (im *Importer) Import(text string) (Result, error) {
	return im.ImportLines(Lines(text))
}

func (im *Importer) ImportLines(lines []string) (Result, error) {
	list, err := im.store.ServerList()
	if err != nil {
		return Result{}, err
	}

	res := Classify(lines, list.Hashes(), im.metrics, im.OnLine)
	if res.New == 0 {
		return res, nil
	}

	merged := make(store.ServerList, 0, len(res.Added)+len(list))
	merged = append(merged, res.Added...)
	merged = append(merged, list...)
	if err := im.store.SaveServerList(merged); err != nil {
		return res, err
	}
	logger.Log.Infof("Imported %d new servers (%d duplicates, %d errors)", res.New, res.Duplicates, res.Errors)
	return res, nil
}
