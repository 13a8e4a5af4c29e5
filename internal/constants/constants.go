package constants

// On-disk layout of a stream directory under the resource dir.
const (
	PlaylistFile    = "index.m3u8"
	SegmentTemplate = "%03d.ts"
)

const (
	ContentTypePlaylist = "application/vnd.apple.mpegurl"
	ContentTypeSegment  = "video/mp2t"
)

// Public route prefixes. The dashboard proxies /backend/... to the streams
// service, and playlists reference segments through the proxied path.
const (
	BackendPrefix      = "/backend"
	SegmentRoutePrefix = "/segment/"
	StreamRoutePrefix  = "/stream/"
)
