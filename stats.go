package tiercache

// Stats is a point-in-time snapshot of the engine's counters. The counters
// are lifetime values: monotonically non-decreasing, unaffected by Clear.
// MemoryItems and DiskItems are gauges taken at snapshot time.
type Stats struct {
	MemoryHits      uint64
	DiskHits        uint64
	Misses          uint64
	MemoryEvictions uint64
	DiskEvictions   uint64
	TotalPuts       uint64
	TotalGets       uint64
	TotalDeletes    uint64

	MemoryItems int
	DiskItems   int64
}
