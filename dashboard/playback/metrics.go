package playback

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/stream-dashboard/internal/otel"
)

var (
	sessionsStarted   metric.Int64Counter
	sessionsFailed    metric.Int64Counter
	activeSessions    metric.Int64UpDownCounter
	segmentsFetched   metric.Int64Counter
	segmentFetchBytes metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("dashboard.playback", intotel.PrefixDashboard)

	f.Int64Counter(&sessionsStarted, "playback.sessions.started",
		metric.WithDescription("Playback sessions started"))

	f.Int64Counter(&sessionsFailed, "playback.sessions.failed",
		metric.WithDescription("Playback sessions that hit a fatal error"))

	f.Int64UpDownCounter(&activeSessions, "playback.sessions.active",
		metric.WithDescription("Playback sessions currently running"))

	f.Int64Counter(&segmentsFetched, "playback.segments.fetched",
		metric.WithDescription("Media segments fetched"))

	f.Int64Counter(&segmentFetchBytes, "playback.segments.bytes",
		metric.WithDescription("Media segment bytes fetched"),
		metric.WithUnit("By"))
}
