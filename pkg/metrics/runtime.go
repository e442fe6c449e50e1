package metrics

import (
	"runtime"
	"time"
)

// CollectRuntime starts a goroutine that periodically samples Go runtime
// stats into gauges named <prefix>_go_goroutines, <prefix>_go_heap_bytes,
// <prefix>_go_sys_bytes, and <prefix>_go_gc_total. It samples once
// immediately so the metrics exist before the first tick.
func (r *Registry) CollectRuntime(prefix string, interval time.Duration) {
	goroutines := r.Gauge(prefix+"_go_goroutines", "Number of live goroutines")
	heap := r.Gauge(prefix+"_go_heap_bytes", "Heap bytes in use")
	sys := r.Gauge(prefix+"_go_sys_bytes", "Bytes obtained from the OS")
	gcs := r.Gauge(prefix+"_go_gc_total", "Completed GC cycles")

	sample := func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		goroutines.Set(int64(runtime.NumGoroutine()))
		heap.Set(int64(ms.HeapAlloc))
		sys.Set(int64(ms.Sys))
		gcs.Set(int64(ms.NumGC))
	}
	sample()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sample()
		}
	}()
}
