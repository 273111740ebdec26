package metrics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"dray/internal/xray/parser"
)

// Failure kinds.
const (
	KindInvalidURI          = "InvalidUri"
	KindUnsupportedProtocol = "UnsupportedProtocol"
	KindMalformedPayload    = "MalformedPayload"
	KindOther               = "Other"
)

// Collector tallies the outcome of imports. It is safe for concurrent use
// so collectors running in parallel can share one.
type Collector struct {
	mu sync.Mutex

	newByProtocol map[string]int
	totalNew      int
	duplicates    int

	errorCounts map[string]int
	totalErrors int

	sources map[string]int
}

func New() *Collector {
	return &Collector{
		newByProtocol: make(map[string]int),
		errorCounts:   make(map[string]int),
		sources:       make(map[string]int),
	}
}

func (c *Collector) RecordNew(protocol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.newByProtocol[protocol]++
	c.totalNew++
}

func (c *Collector) RecordDuplicate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duplicates++
}

// RecordSource counts the links a named source contributed.
func (c *Collector) RecordSource(name string, links int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] += links
}

func (c *Collector) RecordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalErrors++
	c.errorCounts[FailureKind(err)]++
}

// FailureKind classifies a parse error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, parser.ErrInvalidURI):
		return KindInvalidURI
	case errors.Is(err, parser.ErrUnsupportedProtocol):
		return KindUnsupportedProtocol
	case errors.Is(err, parser.ErrMalformedPayload):
		return KindMalformedPayload
	}
	return KindOther
}

// Totals returns the new, duplicate and failed counts.
func (c *Collector) Totals() (added, duplicates, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalNew, c.duplicates, c.totalErrors
}

func (c *Collector) Failures(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorCounts[kind]
}

func (c *Collector) PrintReport(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "\n📊 \033[1mIMPORT REPORT\033[0m")
	fmt.Fprintln(out, "────────────────────────────────────────")

	if len(c.sources) > 0 {
		fmt.Fprintln(w, "\033[1;36m[ SOURCES ]\033[0m")
		for _, k := range sortedKeys(c.sources) {
			fmt.Fprintf(w, "  %s:\t%d links\n", k, c.sources[k])
		}
		fmt.Fprintln(w, "")
	}

	fmt.Fprintln(w, "\033[1;36m[ SERVERS ]\033[0m")
	fmt.Fprintf(w, "  New:\t%d\n", c.totalNew)
	for _, k := range sortedKeys(c.newByProtocol) {
		fmt.Fprintf(w, "    %s:\t%d\n", k, c.newByProtocol[k])
	}
	fmt.Fprintf(w, "  Duplicates:\t%d\n", c.duplicates)
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "\033[1;36m[ ERRORS ]\033[0m")
	fmt.Fprintf(w, "  Total Failures:\t%d\n", c.totalErrors)
	for _, k := range sortedKeys(c.errorCounts) {
		fmt.Fprintf(w, "  %s:\t%d\n", k, c.errorCounts[k])
	}

	w.Flush()
	fmt.Fprintln(out, "")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
