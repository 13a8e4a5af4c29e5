package service

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/stream-dashboard/internal/otel"
)

var (
	playlistCacheHits   metric.Int64Counter
	playlistCacheMisses metric.Int64Counter
	streamsDeleted      metric.Int64Counter
	streamNotFound      metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("streams.service", intotel.PrefixStreams)

	f.Int64Counter(&playlistCacheHits, "playlists.cache_hits",
		metric.WithDescription("Closed playlists served from cache"))

	f.Int64Counter(&playlistCacheMisses, "playlists.cache_misses",
		metric.WithDescription("Playlists read from disk"))

	f.Int64Counter(&streamsDeleted, "streams.deleted",
		metric.WithDescription("Streams deleted"))

	f.Int64Counter(&streamNotFound, "stream.not_found",
		metric.WithDescription("Requests for unknown streams"))
}
