package apiservice

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// typeKey identifies a cache entry. name is lower-cased.
type typeKey struct {
	name    string
	version string
}

// Registry resolves (name, version) pairs to handler types and caches the
// result. Entries are written once and never evicted.
//
// A Registry is safe for concurrent use. Concurrent misses on the same key
// scan the candidate types once; the other callers observe the cached entry.
type Registry struct {
	mu     sync.RWMutex
	types  map[typeKey]*HandlerType
	scans  atomic.Int64
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[typeKey]*HandlerType),
	}
}

// WithLogger sets the logger used to report scans.
// If not set, slog.Default() is used.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// Len returns the number of cached entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Scans returns how many times the candidate types were scanned.
func (r *Registry) Scans() int64 {
	return r.scans.Load()
}

// Resolve returns the handler type answering to name and version, scanning
// candidates when the pair is not cached yet.
//
// It fails with CodeNotSet if name is empty, CodeDescriptorTypeNotFound if no
// candidate matches and CodeDescriptorTypeDuplicate if more than one does.
func (r *Registry) Resolve(name, version string, candidates TypeSource) (*HandlerType, error) {
	if name == "" {
		return nil, errNotSet()
	}
	key := typeKey{name: strings.ToLower(name), version: version}

	if t, ok, err := r.read(name, key); err != nil || ok {
		return t, err
	}
	return r.write(name, key, candidates)
}

func (r *Registry) read(name string, key typeKey) (t *HandlerType, ok bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defer func() {
		if rec := recover(); rec != nil {
			t, ok, err = nil, false, errReadTypeDescriptor(name, fmt.Errorf("%v", rec))
		}
	}()

	t, ok = r.types[key]
	return t, ok, nil
}

func (r *Registry) write(name string, key typeKey, candidates TypeSource) (t *HandlerType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				if svcErr, ok := asDomain(e); ok {
					t, err = nil, svcErr
					return
				}
			}
			t, err = nil, errWriteTypeDescriptor(name, fmt.Errorf("%v", rec))
		}
	}()

	// Another caller may have filled the entry while we waited for the lock.
	if t, ok := r.types[key]; ok {
		return t, nil
	}

	matches, err := r.scan(key, candidates)
	if err != nil {
		if svcErr, ok := asDomain(err); ok {
			return nil, svcErr
		}
		return nil, errWriteTypeDescriptor(name, err)
	}

	switch len(matches) {
	case 0:
		return nil, errDescriptorTypeNotFound(name, key.version)
	case 1:
		r.types[key] = matches[0]
		r.log().Debug("service type cached",
			slog.String("service", key.name),
			slog.String("version", key.version),
			slog.String("type", matches[0].name))
		return matches[0], nil
	default:
		return nil, errDescriptorTypeDuplicate(name, key.version)
	}
}

// scan returns the candidate handler types answering to key.
func (r *Registry) scan(key typeKey, candidates TypeSource) ([]*HandlerType, error) {
	r.scans.Add(1)
	if candidates == nil {
		return nil, nil
	}
	all, err := candidates.Types()
	if err != nil {
		return nil, err
	}

	var matches []*HandlerType
	for _, t := range all {
		if t == nil || t.newFn == nil || !t.exported() || !strings.HasSuffix(t.name, Suffix) {
			continue
		}
		if t.ServiceName() == key.name && t.acceptsVersion(key.version) {
			matches = append(matches, t)
		}
	}
	return matches, nil
}
