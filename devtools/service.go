// Package devtools serves runtime and catalog introspection through the
// dispatcher itself, as the "devtools" service.
//
//	source := devtools.Source(catalog, registry)
//	d := apiservice.NewDispatcher(source).WithRegistry(registry)
//
// GET {prefix}/v1/devtools/status then lists every service the dispatcher
// can resolve.
package devtools

import (
	"runtime"
	"sort"
	"time"

	"github.com/broady/apiservice"
)

// Service implements the devtools operations.
type Service struct {
	source   apiservice.TypeSource
	registry *apiservice.Registry
	started  time.Time
}

// Type returns the handler type answering to "devtools". Status reports the
// types of source and the cache state of registry, which may be nil.
func Type(source apiservice.TypeSource, registry *apiservice.Registry) *apiservice.HandlerType {
	started := time.Now()
	return apiservice.Type("DevtoolsAPIService", func() any {
		return &Service{source: source, registry: registry, started: started}
	}).Operation(
		apiservice.Op("Ping", (*Service).Ping).Verb("GET"),
		apiservice.Op("Info", (*Service).Info).Verb("GET"),
		apiservice.Op("Status", (*Service).Status).Verb("GET"),
	)
}

// Source returns base extended with the devtools handler type.
func Source(base apiservice.TypeSource, registry *apiservice.Registry) apiservice.TypeSource {
	s := &source{base: base}
	s.devtools = Type(s, registry)
	return s
}

type source struct {
	base     apiservice.TypeSource
	devtools *apiservice.HandlerType
}

func (s *source) Types() ([]*apiservice.HandlerType, error) {
	types, err := s.base.Types()
	if err != nil {
		return nil, err
	}
	out := make([]*apiservice.HandlerType, 0, len(types)+1)
	out = append(out, types...)
	return append(out, s.devtools), nil
}

// PingResponse is the response of Devtools.Ping.
type PingResponse struct {
	OK bool `json:"ok" xml:"ok"`
}

// Ping is a health check.
func (s *Service) Ping() *PingResponse {
	return &PingResponse{OK: true}
}

// InfoResponse provides runtime information about the server.
type InfoResponse struct {
	GoVersion     string      `json:"go_version" xml:"go_version"`
	NumGoroutines int         `json:"num_goroutines" xml:"num_goroutines"`
	NumCPU        int         `json:"num_cpu" xml:"num_cpu"`
	Uptime        string      `json:"uptime" xml:"uptime"`
	Memory        MemoryStats `json:"memory" xml:"memory"`
}

// MemoryStats contains memory statistics.
type MemoryStats struct {
	Alloc      uint64 `json:"alloc" xml:"alloc"`
	TotalAlloc uint64 `json:"total_alloc" xml:"total_alloc"`
	Sys        uint64 `json:"sys" xml:"sys"`
	NumGC      uint32 `json:"num_gc" xml:"num_gc"`
}

// Info returns runtime information about the server.
func (s *Service) Info() *InfoResponse {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &InfoResponse{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}
}

// StatusResponse lists the services known to the dispatcher.
type StatusResponse struct {
	OK bool `json:"ok"`
	// CachedTypes is the number of resolved (service, version) keys.
	CachedTypes int `json:"cached_types"`
	// Scans counts registry misses that scanned the type source.
	Scans    int64         `json:"scans"`
	Services []ServiceInfo `json:"services"`
}

// ServiceInfo describes one handler type.
type ServiceInfo struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Versions   []string        `json:"versions"`
	Operations []OperationInfo `json:"operations"`
}

// OperationInfo describes one declared operation.
type OperationInfo struct {
	Name   string   `json:"name"`
	Verb   string   `json:"verb,omitempty"`
	Route  string   `json:"route"`
	Params []string `json:"params"`
}

// Status returns the declared services, sorted by service name.
func (s *Service) Status() (*StatusResponse, error) {
	types, err := s.source.Types()
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{OK: true, Services: []ServiceInfo{}}
	if s.registry != nil {
		resp.CachedTypes = s.registry.Len()
		resp.Scans = s.registry.Scans()
	}
	for _, t := range types {
		if t == nil {
			continue
		}
		info := ServiceInfo{
			Name:       t.ServiceName(),
			Type:       t.Name(),
			Versions:   t.AcceptedVersions(),
			Operations: []OperationInfo{},
		}
		for _, op := range t.Operations() {
			params := op.Params()
			if params == nil {
				params = []string{}
			}
			info.Operations = append(info.Operations, OperationInfo{
				Name:   op.Name(),
				Verb:   op.RequiredVerb(),
				Route:  op.Path(),
				Params: params,
			})
		}
		resp.Services = append(resp.Services, info)
	}
	sort.SliceStable(resp.Services, func(i, j int) bool {
		if resp.Services[i].Name != resp.Services[j].Name {
			return resp.Services[i].Name < resp.Services[j].Name
		}
		return resp.Services[i].Type < resp.Services[j].Type
	})
	return resp, nil
}
