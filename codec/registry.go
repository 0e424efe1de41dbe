package codec

import (
	"fmt"
	"sync"

	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
)

// Registry maps a format_code to the Module that packs/unpacks it (spec
// §4.3). A process normally uses the package-level Default registry; tests
// and embedders that want a smaller or custom catalog construct their own.
type Registry struct {
	mu      sync.RWMutex
	modules map[format.Code]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[format.Code]Module)}
}

// Register installs m as the module for code. Registering after any stream
// has looked the code up is a misuse the caller is responsible for avoiding
// (spec §5: the registry is read-only after initialisation).
func (r *Registry) Register(code format.Code, m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.modules[code] = m
}

// Lookup returns the module for code, or ErrUnsupportedFormat if none is
// registered.
func (r *Registry) Lookup(code format.Code) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[code]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X", errs.ErrUnsupportedFormat, uint8(code))
	}

	return m, nil
}

// Default is the registry every stream consults unless constructed with an
// explicit Registry override.
var Default = NewRegistry()

func init() {
	Default.Register(format.CodeGeneric, genericModule{})
	Default.Register(format.CodeFlowcap, flowcapModule{})
	Default.Register(format.CodeWeb, webModule{})
	Default.Register(format.CodeNotRouted, notRoutedModule{})
	Default.Register(format.CodeRouted, routedModule{})
	Default.Register(format.CodeSplit, splitModule{})
	Default.Register(format.CodeFilter, filterModule{})
	Default.Register(format.CodeAugmented, augmentedModule{})
	Default.Register(format.CodeAugWeb, augWebModule{})
	Default.Register(format.CodeIPv6, ipv6Module{})
	Default.Register(format.CodeIPv6Routing, ipv6Module{routing: true})
}
