package switchd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aliveNeighbors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sdnctl_switch_alive_neighbors",
		Help: "Number of template neighbors currently marked alive by this switch.",
	})
	neighborDeadEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sdnctl_switch_neighbor_dead_total",
		Help: "Number of Neighbor Dead transitions observed by this switch.",
	})
	neighborAliveEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sdnctl_switch_neighbor_alive_total",
		Help: "Number of Neighbor Alive transitions observed by this switch.",
	})
)
