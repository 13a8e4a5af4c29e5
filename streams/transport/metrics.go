package transport

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/stream-dashboard/internal/otel"
)

var (
	uploadsAccepted metric.Int64Counter
	uploadsLimited  metric.Int64Counter
	playlistsServed metric.Int64Counter
	segmentsServed  metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("streams.transport", intotel.PrefixStreams)

	f.Int64Counter(&uploadsAccepted, "uploads.accepted",
		metric.WithDescription("Uploads accepted for ingest"))

	f.Int64Counter(&uploadsLimited, "uploads.rate_limited",
		metric.WithDescription("Uploads rejected by the rate limiter"))

	f.Int64Counter(&playlistsServed, "playlists.served",
		metric.WithDescription("Playlists served"))

	f.Int64Counter(&segmentsServed, "segments.served",
		metric.WithDescription("Segments served"))
}
