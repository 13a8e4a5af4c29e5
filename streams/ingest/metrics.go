package ingest

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/stream-dashboard/internal/otel"
)

var (
	activeIngests   metric.Int64UpDownCounter
	ingestsStarted  metric.Int64Counter
	ingestsFailed   metric.Int64Counter
	ingestsStopped  metric.Int64Counter
	bytesIngested   metric.Int64Counter
	firstSegmentLag metric.Int64Histogram
)

func init() {
	f := intotel.NewFactory("streams.ingest", intotel.PrefixIngest)

	f.Int64UpDownCounter(&activeIngests, "ffmpeg.processes.active",
		metric.WithDescription("Number of running ingest encoders"))

	f.Int64Counter(&ingestsStarted, "ffmpeg.processes.started",
		metric.WithDescription("Total number of ingest encoders started"))

	f.Int64Counter(&ingestsFailed, "ffmpeg.processes.failed",
		metric.WithDescription("Total number of ingests that failed"))

	f.Int64Counter(&ingestsStopped, "ffmpeg.processes.stopped",
		metric.WithDescription("Total number of ingests stopped before completion"))

	f.Int64Counter(&bytesIngested, "bytes",
		metric.WithDescription("Bytes piped into ingest encoders"),
		metric.WithUnit("By"))

	f.Int64Histogram(&firstSegmentLag, "first_segment.duration",
		metric.WithDescription("Time from upload start until the first segment is written"),
		metric.WithUnit("ms"))
}
