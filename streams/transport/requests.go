package transport

type StreamRequest struct {
	StreamID string `uri:"streamId" binding:"required,streamid"`
}

type SegmentRequest struct {
	StreamID  string `uri:"streamId" binding:"required,streamid"`
	SegmentID string `uri:"segmentId" binding:"required,segmentid"`
}

// UploadRequest carries the stream metadata as query parameters; the body is
// the raw media byte stream.
type UploadRequest struct {
	Name        string `form:"name" binding:"required,title"`
	Description string `form:"description" binding:"title"`
	Width       int    `form:"width" binding:"required,dimension"`
	Height      int    `form:"height" binding:"required,dimension"`
}
