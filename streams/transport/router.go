package transport

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/imtaco/stream-dashboard/internal/constants"
	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/internal/validation"
	"github.com/imtaco/stream-dashboard/streams"
)

type Router struct {
	streamService streams.StreamService
	uploadLimiter *rate.Limiter
	engine        *gin.Engine
	logger        *log.Logger
}

func NewRouter(streamService streams.StreamService, uploadLimiter *rate.Limiter, logger *log.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(otelgin.Middleware("stream-service"))

	// players and the publisher page are served from other origins
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Range"},
		ExposeHeaders:   []string{"Content-Length"},
	}))

	if uploadLimiter == nil {
		uploadLimiter = rate.NewLimiter(rate.Inf, 0)
	}

	r := &Router{
		streamService: streamService,
		uploadLimiter: uploadLimiter,
		engine:        engine,
		logger:        logger,
	}

	r.setupRoutes()
	return r
}

func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.GET("/streams", r.listStreams)
	r.engine.DELETE("/stream/:streamId", r.deleteStream)
	r.engine.GET("/stream/:streamId", r.getPlaylist)
	r.engine.GET("/segment/:streamId/:segmentId", r.getSegment)
	r.engine.POST("/upload", r.upload)

	r.engine.GET("/health", r.healthCheck)
}

func (r *Router) listStreams(c *gin.Context) {
	list, err := r.streamService.ListStreams(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to list streams", log.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list streams",
		})
		return
	}
	if list == nil {
		list = []*streams.Stream{}
	}
	c.JSON(http.StatusOK, list)
}

func (r *Router) deleteStream(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Validation failed",
			"details": validation.FormatValidationError(err),
		})
		return
	}

	err := r.streamService.DeleteStream(c.Request.Context(), req.StreamID)
	if errors.Is(err, streams.ErrStreamNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if err != nil {
		r.logger.Error("Failed to delete stream",
			log.String("streamId", req.StreamID),
			log.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to delete stream",
		})
		return
	}

	c.Status(http.StatusOK)
}

func (r *Router) getPlaylist(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.String(http.StatusNotFound, "File not found")
		return
	}

	data, err := r.streamService.Playlist(c.Request.Context(), req.StreamID)
	if err != nil {
		r.logger.Debug("Playlist unavailable",
			log.String("streamId", req.StreamID),
			log.Error(err))
		c.String(http.StatusNotFound, "File not found")
		return
	}

	playlistsServed.Add(c.Request.Context(), 1)
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, constants.ContentTypePlaylist, data)
}

func (r *Router) getSegment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	path, err := r.streamService.SegmentPath(req.StreamID, req.SegmentID)
	if err != nil {
		r.logger.Debug("Segment unavailable",
			log.String("streamId", req.StreamID),
			log.String("segmentId", req.SegmentID),
			log.Error(err))
		c.Status(http.StatusNotFound)
		return
	}

	segmentsServed.Add(c.Request.Context(), 1)
	c.Header("Content-Type", constants.ContentTypeSegment)
	c.File(path)
}

func (r *Router) upload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Validation failed",
			"details": validation.FormatValidationError(err),
		})
		return
	}

	ctx := c.Request.Context()
	if !r.uploadLimiter.Allow() {
		uploadsLimited.Add(ctx, 1)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "Too many uploads",
		})
		return
	}
	uploadsAccepted.Add(ctx, 1)

	streamID, err := r.streamService.Upload(ctx, c.Request.Body, streams.IngestOptions{
		Name:        req.Name,
		Description: req.Description,
		Width:       req.Width,
		Height:      req.Height,
	})
	switch {
	case err == nil:
		c.String(http.StatusOK, streamID)
	case errors.Is(err, streams.ErrTooManyIngests):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, streams.ErrIngestStopped):
		c.JSON(http.StatusGone, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	default:
		r.logger.Error("Upload failed", log.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to process upload",
		})
	}
}

func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
