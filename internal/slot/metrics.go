package slot

import "github.com/prometheus/client_golang/prometheus"

var (
	activeEngines = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stitchgrid_active_engines", Help: "Slots currently holding a live playback engine"},
	)
	viewsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stitchgrid_views_registered_total", Help: "View-registration events emitted"},
	)
	loopsOccurred = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stitchgrid_loops_total", Help: "Loop events emitted"},
	)
	killsHandled = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stitchgrid_kill_broadcasts_total", Help: "killAllPlayback broadcasts serviced"},
	)
	forcedReleases = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stitchgrid_forced_releases_total", Help: "Engines released under pool pressure"},
	)
)

func init() {
	prometheus.MustRegister(activeEngines, viewsRegistered, loopsOccurred, killsHandled, forcedReleases)
}
