// Package metrics exposes core.Counters as a prometheus.Collector,
// grounded on runZeroInc-sockstats' TCPInfoCollector: a Describe/Collect
// pair over a fixed set of *prometheus.Desc, with Collect reading the
// live source fresh on every scrape rather than caching.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"tl4bcu/core"
)

// Collector adapts a *core.Counters (and the connection state it isn't
// part of, but is useful alongside) into Prometheus metrics.
type Collector struct {
	counters *core.Counters
	state    func() core.TL4State

	telegramCount                *prometheus.Desc
	disconnectCount               *prometheus.Desc
	repeatedTelegramCount         *prometheus.Desc
	repeatedIgnoredTelegramCount  *prometheus.Desc
	repeatedTAckCount             *prometheus.Desc
	connectionState               *prometheus.Desc
}

// NewCollector builds a Collector reading counters and, for the
// connection-state gauge, calling state on every scrape.
func NewCollector(counters *core.Counters, state func() core.TL4State) *Collector {
	return &Collector{
		counters: counters,
		state:    state,

		telegramCount: prometheus.NewDesc(
			"tl4_telegram_total", "Telegrams processed since reset.", nil, nil),
		disconnectCount: prometheus.NewDesc(
			"tl4_disconnect_total", "Connections torn down since reset.", nil, nil),
		repeatedTelegramCount: prometheus.NewDesc(
			"tl4_repeated_telegram_total", "Group and broadcast telegrams classified as byte-identical duplicates.", nil, nil),
		repeatedIgnoredTelegramCount: prometheus.NewDesc(
			"tl4_repeated_ignored_telegram_total", "Duplicate group and broadcast telegrams dropped without further processing.", nil, nil),
		repeatedTAckCount: prometheus.NewDesc(
			"tl4_repeated_tack_total", "T_ACKs re-sent for a duplicate data telegram (action A3).", nil, nil),
		connectionState: prometheus.NewDesc(
			"tl4_connection_state", "Current TL4 state: 0=CLOSED, 1=OPEN_IDLE, 2=OPEN_WAIT.", nil, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.telegramCount
	descs <- c.disconnectCount
	descs <- c.repeatedTelegramCount
	descs <- c.repeatedIgnoredTelegramCount
	descs <- c.repeatedTAckCount
	descs <- c.connectionState
}

func (c *Collector) Collect(out chan<- prometheus.Metric) {
	snap := c.counters.Snapshot()

	out <- prometheus.MustNewConstMetric(c.telegramCount, prometheus.CounterValue, float64(snap.TelegramCount))
	out <- prometheus.MustNewConstMetric(c.disconnectCount, prometheus.CounterValue, float64(snap.DisconnectCount))
	out <- prometheus.MustNewConstMetric(c.repeatedTelegramCount, prometheus.CounterValue, float64(snap.RepeatedTelegramCount))
	out <- prometheus.MustNewConstMetric(c.repeatedIgnoredTelegramCount, prometheus.CounterValue, float64(snap.RepeatedIgnoredTelegramCount))
	out <- prometheus.MustNewConstMetric(c.repeatedTAckCount, prometheus.CounterValue, float64(snap.RepeatedTAckCount))

	if c.state != nil {
		out <- prometheus.MustNewConstMetric(c.connectionState, prometheus.GaugeValue, float64(c.state()))
	}
}

var _ prometheus.Collector = (*Collector)(nil)
