// Package metrics exposes Prometheus counters for the background tasks
// and the commands, plus a small HTTP server for them.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	TaskRuns        *prometheus.CounterVec
	TaskErrors      *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec
	Replacements    prometheus.Counter
	BoosterGrants   prometheus.Counter
	BoosterRevokes  prometheus.Counter
	RoomRenames     *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	Maintenance     *prometheus.CounterVec
	QuickLinkClicks *prometheus.CounterVec
)

// Init registers metrics (idempotent)
func Init() {
	once.Do(func() {
		TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tierbot_task_runs_total", Help: "Runs of background tasks"}, []string{"task"})
		TaskErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tierbot_task_errors_total", Help: "Failed runs of background tasks"}, []string{"task"})
		TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "tierbot_task_duration_seconds", Help: "Duration of background task runs", Buckets: prometheus.DefBuckets}, []string{"task"})
		Replacements = promauto.NewCounter(prometheus.CounterOpts{Name: "tierbot_quicklinks_replacements_total", Help: "Times the quick links message was reposted"})
		BoosterGrants = promauto.NewCounter(prometheus.CounterOpts{Name: "tierbot_booster_grants_total", Help: "Booster roles granted"})
		BoosterRevokes = promauto.NewCounter(prometheus.CounterOpts{Name: "tierbot_booster_revokes_total", Help: "Booster roles revoked"})
		RoomRenames = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tierbot_room_renames_total", Help: "Room channels renamed"}, []string{"entrypoint"})
		Commands = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tierbot_commands_total", Help: "Commands received"}, []string{"command", "result"})
		Maintenance = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tierbot_maintenance_notices_total", Help: "Maintenance notices posted and deleted"}, []string{"action"})
		QuickLinkClicks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tierbot_quicklinks_clicks_total", Help: "Quick link buttons pressed"}, []string{"button"})
	})
}

// ObserveTask fits the observer of common.TimedExecutor
func ObserveTask(name string, elapsed time.Duration, err error) {
	if TaskRuns == nil {
		return
	}
	TaskRuns.WithLabelValues(name).Inc()
	TaskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		TaskErrors.WithLabelValues(name).Inc()
	}
}

func IncReplacements() {
	if Replacements != nil {
		Replacements.Inc()
	}
}

func AddBoosterChanges(granted int, revoked int) {
	if BoosterGrants != nil {
		BoosterGrants.Add(float64(granted))
		BoosterRevokes.Add(float64(revoked))
	}
}

func IncRoomRename(entrypoint string) {
	if RoomRenames != nil {
		RoomRenames.WithLabelValues(entrypoint).Inc()
	}
}

func IncCommand(command string, result string) {
	if Commands != nil {
		Commands.WithLabelValues(command, result).Inc()
	}
}

func IncMaintenance(action string) {
	if Maintenance != nil {
		Maintenance.WithLabelValues(action).Inc()
	}
}

func IncQuickLinkClick(button string) {
	if QuickLinkClicks != nil {
		QuickLinkClicks.WithLabelValues(button).Inc()
	}
}
