package server

import (
	"runtime"
	"time"
)

var start = time.Now()

const mb float64 = 1.0 * 1024 * 1024

// HealthStats process runtime stats for the health endpoint
type HealthStats struct {
	Uptime           int64   `json:"uptime"`
	AllocatedMemory  float64 `json:"allocated_memory"`
	HeapAllocated    float64 `json:"heap_allocated"`
	Goroutines       int     `json:"goroutines"`
	GCCycles         uint32  `json:"gc_cycles"`
	NumberOfCPUs     int     `json:"number_of_cpus"`
	OSMemoryObtained float64 `json:"os_memory_obtained"`
}

// GetHealthStats reads current runtime memory stats
func GetHealthStats() *HealthStats {
	mem := &runtime.MemStats{}
	runtime.ReadMemStats(mem)

	return &HealthStats{
		Uptime:           time.Now().Unix() - start.Unix(),
		AllocatedMemory:  toMegaBytes(mem.Alloc),
		HeapAllocated:    toMegaBytes(mem.HeapAlloc),
		Goroutines:       runtime.NumGoroutine(),
		GCCycles:         mem.NumGC,
		NumberOfCPUs:     runtime.NumCPU(),
		OSMemoryObtained: toMegaBytes(mem.Sys),
	}
}

func toMegaBytes(bytes uint64) float64 {
	return float64(int(float64(bytes)/mb*100+0.5)) / 100
}
