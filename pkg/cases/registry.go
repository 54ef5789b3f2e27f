// Package cases is the catalogue of bench test cases. Each case drives one
// device through a fixed command sequence and reports pass/fail checks.
package cases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"regexp"
	"sync"

	"github.com/labkit/imucal/pkg/verify"
)

var ErrUnknownCase = errors.New("unknown test case")

// Case is one registered test case.
type Case struct {
	// ID is what operators type, e.g. "2745" or "heading-verify".
	ID    string
	Title string
	// LogFile is the device-side log the case writes or reads. Env.File
	// overrides it.
	LogFile string
	// Header marks where a retrieved log starts. Nil means udf.FusedHeader.
	Header *regexp.Regexp
	// Endless cases keep streaming until the context is canceled.
	Endless bool
	Run     func(ctx context.Context, env *Env) (*verify.Report, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Case{}
)

// Register adds c to the catalogue. It panics on duplicate or incomplete
// cases since registration happens at init time.
func Register(c Case) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if c.ID == "" || c.Run == nil {
		panic("cases: case needs an ID and a Run function")
	}
	if _, dup := registry[c.ID]; dup {
		panic(fmt.Sprintf("cases: duplicate case %q", c.ID))
	}
	registry[c.ID] = c
}

// Lookup returns the case registered under id.
func Lookup(id string) (Case, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[id]
	if !ok {
		return Case{}, fmt.Errorf("%w: %s", ErrUnknownCase, id)
	}
	return c, nil
}

// All returns every registered case sorted by ID.
func All() []Case {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Case, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
