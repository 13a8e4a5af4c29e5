package transport

import (
	"github.com/imtaco/stream-dashboard/dashboard"
)

type StreamRequest struct {
	StreamID string `uri:"streamId" binding:"required,streamid"`
}

type SegmentRequest struct {
	StreamID  string `uri:"streamId" binding:"required,streamid"`
	SegmentID string `uri:"segmentId" binding:"required,segmentid"`
}

// StreamView is a table row.
type StreamView struct {
	*dashboard.Stream
	Uptime   string `json:"uptime"`
	Selected bool   `json:"selected"`
}

type SelectionResponse struct {
	Selected []string `json:"selected"`
}
