package context

import (
	"fmt"
	"sort"
	"sync"

	"github.com/govm-net/counter/types"
)

// ContextType represents the type of blockchain context
type ContextType string

const (
	// MemoryContextType represents in-memory context implementation
	MemoryContextType ContextType = "memory"
	// DBContextType represents database-backed context implementation
	DBContextType ContextType = "db"
)

// ContextConstructor creates a new BlockchainContext instance
type ContextConstructor func(params map[string]any) (types.BlockchainContext, error)

// Registry defines the interface for managing BlockchainContext implementations
type Registry interface {
	// Register adds a new BlockchainContext implementation to the registry
	Register(ct ContextType, constructor ContextConstructor) error
	// SetDefault sets the default context type
	SetDefault(ct ContextType) error
	// Get returns a new instance of the specified context type
	Get(ct ContextType, params map[string]any) (types.BlockchainContext, error)
	// DefaultContextType returns the current default context type
	DefaultContextType() ContextType
	// ListRegistered returns a list of all registered context types
	ListRegistered() []ContextType
}

// registry implements the Registry interface
type registry struct {
	mu        sync.RWMutex
	contexts  map[ContextType]ContextConstructor
	defaultCt ContextType
}

var (
	// defaultRegistry is the global singleton registry instance
	defaultRegistry Registry = NewRegistry()
)

// NewRegistry returns an empty registry
func NewRegistry() Registry {
	return &registry{
		contexts: make(map[ContextType]ContextConstructor),
	}
}

// GetRegistry returns the global Registry instance
func GetRegistry() Registry {
	return defaultRegistry
}

// Register adds a new BlockchainContext implementation to the registry
func (r *registry) Register(ct ContextType, constructor ContextConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contexts[ct]; exists {
		return fmt.Errorf("context type %s already registered", ct)
	}

	r.contexts[ct] = constructor
	return nil
}

// SetDefault sets the default context type
func (r *registry) SetDefault(ct ContextType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contexts[ct]; !exists {
		return fmt.Errorf("context type %s not registered", ct)
	}

	r.defaultCt = ct
	return nil
}

// Get returns a new instance of the specified context type
func (r *registry) Get(ct ContextType, params map[string]any) (types.BlockchainContext, error) {
	if ct == "" {
		ct = r.DefaultContextType()
	}

	r.mu.RLock()
	constructor, exists := r.contexts[ct]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("context type %s not found", ct)
	}

	ctx, err := constructor(params)
	if err != nil {
		return nil, fmt.Errorf("create %s context: %w", ct, err)
	}
	return ctx, nil
}

// DefaultContextType returns the current default context type
func (r *registry) DefaultContextType() ContextType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultCt == "" {
		return MemoryContextType
	}
	return r.defaultCt
}

// ListRegistered returns the registered context types in name order
func (r *registry) ListRegistered() []ContextType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ContextType, 0, len(r.contexts))
	for ct := range r.contexts {
		types = append(types, ct)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Package level functions that delegate to defaultRegistry

// Register adds a new BlockchainContext implementation to the registry
func Register(ct ContextType, constructor ContextConstructor) error {
	return GetRegistry().Register(ct, constructor)
}

// SetDefault sets the default context type
func SetDefault(ct ContextType) error {
	return GetRegistry().SetDefault(ct)
}

// Get returns a new instance of the specified context type; an empty type
// selects the default
func Get(ct ContextType, params map[string]any) (types.BlockchainContext, error) {
	return GetRegistry().Get(ct, params)
}

// DefaultContextType returns the current default context type
func DefaultContextType() ContextType {
	return GetRegistry().DefaultContextType()
}

// ListRegistered returns a list of all registered context types
func ListRegistered() []ContextType {
	return GetRegistry().ListRegistered()
}
