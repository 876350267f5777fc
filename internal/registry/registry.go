// Package registry implements the thread/plugin registry: the catalog of
// worker descriptors a pipeline's command line names workers from. Workers
// register themselves (statically, via a package init, or dynamically, via
// LoadPlugin) and the supervisor looks them up by name.
package registry

import (
	"fmt"
	"io"
	"sync"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"
)

// RingFactory creates or attaches the ring a worker's input or output side
// binds to. databufID numbers a worker's ring slot within its own pipeline
// position, not a global index.
type RingFactory func(instanceID, databufID int) (*databuf.Ring, error)

// Descriptor is an immutable worker registration: a name the CLI looks it
// up by, the status-buffer key it reports its lifecycle state under, and
// the functions the supervisor calls. NewInputRing/NewOutputRing are nil
// for a worker that has no input (source) or no output (sink) side, and
// their nil-ness is what IsInputOnly/IsOutputOnly/IsInOut test.
type Descriptor struct {
	Name          string
	StatusKey     string // e.g. "NETSTAT", conventionally <=8 chars, uppercase
	Init          func(args *workerrt.Args) error
	Run           func(args *workerrt.Args) error
	NewInputRing  RingFactory
	NewOutputRing RingFactory
}

// IsInputOnly reports whether d has no input ring and produces an output
// ring (a source that feeds data into the pipeline, e.g. a capture thread).
func (d Descriptor) IsInputOnly() bool {
	return d.NewInputRing == nil && d.NewOutputRing != nil
}

// IsOutputOnly reports whether d reads from an input ring and produces no
// downstream ring (a sink, e.g. an output/null thread).
func (d Descriptor) IsOutputOnly() bool {
	return d.NewInputRing != nil && d.NewOutputRing == nil
}

// IsInOut reports whether d both reads from and writes to a ring (a
// transform stage in the middle of a pipeline).
func (d Descriptor) IsInOut() bool {
	return d.NewInputRing != nil && d.NewOutputRing != nil
}

var (
	mu      sync.RWMutex
	entries []Descriptor
	byName  = map[string]int{}
)

// Register adds d to the registry. Returns hashpipe.ErrRegistryFull past
// constants.MaxThreads registrations, and an error if the name is already
// taken.
func Register(d Descriptor) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := byName[d.Name]; exists {
		return hashpipe.NewError("registry", "Register", hashpipe.ErrKindParameter, fmt.Sprintf("worker %q already registered", d.Name))
	}
	if len(entries) >= constants.MaxThreads {
		return hashpipe.WrapError("registry", "Register", hashpipe.ErrKindParameter, hashpipe.ErrRegistryFull)
	}
	byName[d.Name] = len(entries)
	entries = append(entries, d)
	return nil
}

// Find looks up a worker descriptor by name.
func Find(name string) (Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	idx, ok := byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return entries[idx], true
}

// List prints every registered worker name to w, one per line, in
// registration order. The names are printed as one list; they are not
// grouped into input-only, inout and output-only sections.
func List(w io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	for _, d := range entries {
		fmt.Fprintf(w, "  %s\n", d.Name)
	}
}

// Names returns every registered worker name, in registration order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, len(entries))
	for i, d := range entries {
		out[i] = d.Name
	}
	return out
}

// reset clears the registry. Test-only: lets package tests run independent
// of registrations made by other packages' init() functions.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	entries = nil
	byName = map[string]int{}
}
