package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registeredSwitches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sdnctl_controller_registered_switches",
		Help: "Number of switches currently known to the controller.",
	})
	aliveSwitches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sdnctl_controller_alive_switches",
		Help: "Number of switches currently marked alive.",
	})
	routingRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sdnctl_controller_routing_recomputes_total",
		Help: "Number of times the routing cache recomputed the routing table.",
	})
	switchDeadEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sdnctl_controller_switch_dead_total",
		Help: "Number of Switch Dead transitions observed.",
	})
	linkDeadEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sdnctl_controller_link_dead_total",
		Help: "Number of Link Dead transitions observed.",
	})
)
