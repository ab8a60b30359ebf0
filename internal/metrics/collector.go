package metrics

import (
	"os"
	"sync"
	"time"

	"photo-indexer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() (Stats, error)
}

// DBMetricsUpdater refreshes connection pool gauges.
type DBMetricsUpdater interface {
	UpdateDBMetrics()
}

// Stats holds the current statistics
type Stats struct {
	ActiveImages     int
	DeletedImages    int
	MonthDirectories int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbUpdater     DBMetricsUpdater
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewCollector creates a new metrics collector. dbPath may be empty to skip
// database file size sampling.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	c := &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
	if updater, ok := provider.(DBMetricsUpdater); ok {
		c.dbUpdater = updater
	}
	return c
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

func (c *Collector) collectLoop() {
	defer c.wg.Done()

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.dbUpdater != nil {
		c.dbUpdater.UpdateDBMetrics()
	}
	if c.dbPath != "" {
		collectDBSizes(c.dbPath)
	}

	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats()
	if err != nil {
		logging.Warn("Metrics collection skipped: %v", err)
		return
	}

	ImagesTotal.WithLabelValues("active").Set(float64(stats.ActiveImages))
	ImagesTotal.WithLabelValues("deleted").Set(float64(stats.DeletedImages))
	MonthDirectoriesTotal.Set(float64(stats.MonthDirectories))

	logging.Debug("Metrics collected: active=%d, deleted=%d, directories=%d",
		stats.ActiveImages, stats.DeletedImages, stats.MonthDirectories)
}

func collectDBSizes(dbPath string) {
	files := map[string]string{
		"main": dbPath,
		"wal":  dbPath + "-wal",
		"shm":  dbPath + "-shm",
	}
	for label, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
