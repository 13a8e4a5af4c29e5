package otel

// Metric prefixes for each service
const (
	PrefixStreams   = "streams"
	PrefixIngest    = "ingest"
	PrefixDashboard = "dashboard"
)
