package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is one sample of the resources the server depends on.
type HostStats struct {
	DataDir       string    `json:"dataDir"`
	DiskUsedBytes uint64    `json:"diskUsedBytes"`
	DiskFreeBytes uint64    `json:"diskFreeBytes"`
	DiskUsedPct   float64   `json:"diskUsedPercent"`
	MemoryUsedPct float64   `json:"memoryUsedPercent"`
	SampledAt     time.Time `json:"sampledAt"`
}

// StatUpdater periodically samples disk usage of the data directory and
// host memory and publishes them as gauges.
type StatUpdater struct {
	dataDir  string
	interval time.Duration
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	latest HostStats

	done     chan struct{}
	stopOnce sync.Once
}

// NewStatUpdater creates a new StatUpdater. m may be nil.
func NewStatUpdater(dataDir string, interval time.Duration, m *metrics.Metrics) *StatUpdater {
	return &StatUpdater{
		dataDir:  dataDir,
		interval: interval,
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Run samples once immediately and then every interval until Stop.
func (su *StatUpdater) Run() {
	log.Info().Str("data_dir", su.dataDir).Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	su.update()
	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates. It is safe to call more than once.
func (su *StatUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.done) })
}

// Latest returns the most recent sample, zero before the first one.
func (su *StatUpdater) Latest() HostStats {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest
}

func (su *StatUpdater) update() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := Sample(ctx, su.dataDir)
	if err != nil {
		log.Warn().Err(err).Str("data_dir", su.dataDir).Msg("StatUpdater: Could not sample host stats")
		return
	}

	su.mu.Lock()
	su.latest = stats
	su.mu.Unlock()
	su.metrics.SetHostStats(stats.DiskUsedBytes, stats.DiskFreeBytes, stats.MemoryUsedPct)
}

// Sample reads disk usage for the filesystem holding dataDir and host
// memory usage.
func Sample(ctx context.Context, dataDir string) (HostStats, error) {
	usage, err := disk.UsageWithContext(ctx, dataDir)
	if err != nil {
		return HostStats{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, err
	}
	return HostStats{
		DataDir:       dataDir,
		DiskUsedBytes: usage.Used,
		DiskFreeBytes: usage.Free,
		DiskUsedPct:   usage.UsedPercent,
		MemoryUsedPct: vm.UsedPercent,
		SampledAt:     time.Now().UTC(),
	}, nil
}
