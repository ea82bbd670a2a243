// Package profiling exposes pprof and runtime statistics. The routes reveal
// goroutine stacks and memory contents, so they are only mounted behind
// admin authentication and only when app.debug is set.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/faithdive/faithdive/internal/web/response"
)

// Path is the prefix of the pprof routes
const Path = "/debug/pprof"

// Mount registers the pprof routes and /debug/stats on r
func Mount(r chi.Router) {
	r.Route(Path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)

		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
	r.Get("/debug/stats", StatsHandler)
}

// MemoryStats is the memory part of Stats
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// Stats is a snapshot of the Go runtime
type Stats struct {
	Goroutines int         `json:"goroutines"`
	NumCPU     int         `json:"num_cpu"`
	Memory     MemoryStats `json:"memory"`
}

// RuntimeStats returns current runtime statistics
func RuntimeStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, RuntimeStats())
}
