// Package linker resolves a module's declared imports against a registry
// of named externs supplied by the embedder (host functions, other
// instantiated modules' exports), producing the ordered []store.ExternVal
// slice store.Store.Instantiate needs.
package linker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vertexdlt/vertexvm-engine/internal/zlog"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/validate"
	"go.uber.org/zap"
)

// ErrRegistrySymbolAlreadyExists is returned by Register/RegisterModule when
// a (moduleName, name) pair is already bound.
var ErrRegistrySymbolAlreadyExists = errors.New("linker: symbol already registered")

// ErrUnknownImport is returned by Resolve when a module's import has no
// matching registration.
var ErrUnknownImport = errors.New("linker: unknown import")

// ErrInvalidImportType is returned by Resolve when a registered symbol
// exists under the right name but is the wrong extern kind.
var ErrInvalidImportType = errors.New("linker: import kind mismatch")

// Registry is an ordered namespace of externs the embedder has made
// available for import, keyed by (moduleName, name) the way Wasm imports
// are two-level named.
type Registry struct {
	store *store.Store

	entries map[string]map[string]store.ExternVal
	// order remembers each (moduleName, name) key in registration order,
	// grounded on original_source/src/execution/linker.rs's Vec-backed
	// Linker: the map above gives Lookup its O(1) cost, but anything that
	// needs to walk the whole registry (diagnostics, re-exporting every
	// binding into another registry) should see a deterministic order
	// rather than Go's randomized map iteration.
	order []registryKey
}

type registryKey struct {
	module, name string
}

// NewRegistry creates an empty Registry bound to s — entries registered
// into it must be addresses allocated in s (host functions via
// s.HostFuncAddr, or another module's exports via s.InstanceExport).
func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s, entries: map[string]map[string]store.ExternVal{}}
}

// Register binds a single extern under moduleName.name.
func (r *Registry) Register(moduleName, name string, ext store.ExternVal) error {
	ns, ok := r.entries[moduleName]
	if !ok {
		ns = map[string]store.ExternVal{}
		r.entries[moduleName] = ns
	}
	if _, exists := ns[name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrRegistrySymbolAlreadyExists, moduleName, name)
	}
	ns[name] = ext
	r.order = append(r.order, registryKey{module: moduleName, name: name})
	return nil
}

// RegisterModule binds every export of an already-instantiated module
// under moduleName, so a later module can `import "moduleName" "export"`.
// Exports are registered in name-sorted order so the resulting Entries
// order is deterministic regardless of mi.Exports' map iteration order.
func (r *Registry) RegisterModule(moduleName string, mi *store.ModuleInstance) error {
	names := make([]string, 0, len(mi.Exports))
	for name := range mi.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Register(moduleName, name, mi.Exports[name]); err != nil {
			return err
		}
	}
	return nil
}

// RegistryEntry is one moduleName.name -> extern binding, as returned by
// Entries in registration order.
type RegistryEntry struct {
	Module string
	Name   string
	Extern store.ExternVal
}

// Entries walks every registered binding in registration order — the
// deterministic counterpart to ranging over entries' nested maps directly.
func (r *Registry) Entries() []RegistryEntry {
	out := make([]RegistryEntry, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, RegistryEntry{Module: key.module, Name: key.name, Extern: r.entries[key.module][key.name]})
	}
	return out
}

// Lookup finds a single registered extern.
func (r *Registry) Lookup(moduleName, name string) (store.ExternVal, bool) {
	ns, ok := r.entries[moduleName]
	if !ok {
		return store.ExternVal{}, false
	}
	ext, ok := ns[name]
	return ext, ok
}

// Resolve builds the []store.ExternVal slice, in import-declaration order,
// that store.Store.Instantiate expects — one entry per entry of
// info.Imports, resolved against the registry.
func (r *Registry) Resolve(info *validate.Info) ([]store.ExternVal, error) {
	resolved := make([]store.ExternVal, len(info.Imports))
	for i, im := range info.Imports {
		ext, ok := r.Lookup(im.Module, im.Name)
		if !ok {
			zlog.L().Warn("unresolved import", zap.String("module", im.Module), zap.String("name", im.Name))
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownImport, im.Module, im.Name)
		}
		if ext.Kind != im.Kind {
			zlog.L().Warn("import kind mismatch", zap.String("module", im.Module), zap.String("name", im.Name))
			return nil, fmt.Errorf("%w: %s.%s expects %s, registry has %s", ErrInvalidImportType, im.Module, im.Name, im.Kind, ext.Kind)
		}
		resolved[i] = ext
	}
	return resolved, nil
}
