package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolStats is a snapshot of connection pool counters.
type PoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
	Max      int32
}

// DBPoolStatFunc returns database pool statistics without importing pgxpool.
type DBPoolStatFunc func() PoolStats

type dbPoolCollector struct {
	stats DBPoolStatFunc

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	max      *prometheus.Desc
}

// NewDBPoolCollector creates a collector that exposes DB pool gauges.
func NewDBPoolCollector(stats DBPoolStatFunc) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("isquat_db_pool_"+name, help, nil, nil)
	}
	return &dbPoolCollector{
		stats:    stats,
		total:    desc("total_conns", "Total number of connections in the DB pool."),
		idle:     desc("idle_conns", "Number of idle connections in the DB pool."),
		acquired: desc("acquired_conns", "Number of acquired connections in the DB pool."),
		max:      desc("max_conns", "Configured maximum size of the DB pool."),
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	for _, g := range []struct {
		desc  *prometheus.Desc
		value int32
	}{
		{c.total, s.Total},
		{c.idle, s.Idle},
		{c.acquired, s.Acquired},
		{c.max, s.Max},
	} {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, float64(g.value))
	}
}
