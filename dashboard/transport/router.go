package transport

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/imtaco/stream-dashboard/dashboard"
	"github.com/imtaco/stream-dashboard/dashboard/listing"
	"github.com/imtaco/stream-dashboard/internal/constants"
	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/internal/validation"
)

type Router struct {
	streams *listing.Model
	proxy   *httputil.ReverseProxy
	metrics *Metrics
	clock   clockwork.Clock
	engine  *gin.Engine
	logger  *log.Logger
}

func NewRouter(
	streams *listing.Model,
	backendURL string,
	metrics *Metrics,
	clock clockwork.Clock,
	logger *log.Logger,
) (*Router, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, errors.Wrapf(dashboard.ErrBackend, err, "parse backend url %q", backendURL)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Newf(dashboard.ErrBackend, "backend url %q is not absolute", backendURL)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(otelgin.Middleware("dashboard"))

	r := &Router{
		streams: streams,
		metrics: metrics,
		clock:   clock,
		engine:  engine,
		logger:  logger,
	}
	r.proxy = r.newProxy(target)
	engine.Use(r.countRequests)

	r.setupRoutes()
	return r, nil
}

func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) setupRoutes() {
	api := r.engine.Group("/api")
	{
		api.GET("/streams", r.listStreams)
		api.DELETE("/streams/:streamId", r.deleteStream)

		api.GET("/selection", r.getSelection)
		api.POST("/selection", r.toggleAll)
		api.POST("/selection/:streamId", r.toggleStream)
		api.DELETE("/selection", r.deleteSelected)
	}

	backend := r.engine.Group(constants.BackendPrefix)
	{
		backend.GET("/stream/:streamId", r.proxyStream)
		backend.GET("/segment/:streamId/:segmentId", r.proxySegment)
	}

	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	r.engine.GET("/health", r.healthCheck)
}

func (r *Router) listStreams(c *gin.Context) {
	if err := r.streams.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "Failed to load streams",
		})
		return
	}

	list := r.streams.Streams()
	r.metrics.loadedStreams.Set(float64(len(list)))

	now := r.clock.Now()
	rows := make([]StreamView, 0, len(list))
	for _, st := range list {
		rows = append(rows, StreamView{
			Stream:   st,
			Uptime:   listing.Elapsed(st.StartTime, now),
			Selected: r.streams.IsSelected(st.ID),
		})
	}
	c.JSON(http.StatusOK, rows)
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

	if err := r.streams.Delete(c.Request.Context(), req.StreamID); err != nil {
		r.metrics.deleteFailures.Inc()
		r.upstreamError(c, err, "Failed to delete stream")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) getSelection(c *gin.Context) {
	c.JSON(http.StatusOK, SelectionResponse{Selected: r.streams.Selected()})
}

func (r *Router) toggleAll(c *gin.Context) {
	r.streams.ToggleAll()
	c.JSON(http.StatusOK, SelectionResponse{Selected: r.streams.Selected()})
}

func (r *Router) toggleStream(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Validation failed",
			"details": validation.FormatValidationError(err),
		})
		return
	}

	if _, ok := r.streams.Lookup(req.StreamID); !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Stream not loaded",
		})
		return
	}
	r.streams.Toggle(req.StreamID)
	c.JSON(http.StatusOK, SelectionResponse{Selected: r.streams.Selected()})
}

func (r *Router) deleteSelected(c *gin.Context) {
	if err := r.streams.DeleteSelected(c.Request.Context()); err != nil {
		r.metrics.deleteFailures.Inc()
		c.JSON(http.StatusBadGateway, gin.H{
			"success":  false,
			"error":    "Failed to delete some streams",
			"selected": r.streams.Selected(),
		})
		return
	}
	c.JSON(http.StatusOK, SelectionResponse{Selected: r.streams.Selected()})
}

// upstreamError passes a registry 404 through and reports anything else as
// a bad gateway.
func (r *Router) upstreamError(c *gin.Context, err error, message string) {
	if statusErr, ok := errors.As[*dashboard.StatusError](err); ok && (*statusErr).StatusCode == http.StatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Stream not found",
		})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{
		"success": false,
		"error":   message,
	})
}

func (r *Router) proxyStream(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	r.proxy.ServeHTTP(c.Writer, c.Request)
}

func (r *Router) proxySegment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	r.proxy.ServeHTTP(c.Writer, c.Request)
}

// newProxy forwards /backend/<rest> to <backend>/<rest>.
func (r *Router) newProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, constants.BackendPrefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			r.metrics.proxyErrors.Inc()
			r.logger.Warn("Backend request failed",
				log.String("path", req.URL.Path),
				log.Error(err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

func (r *Router) countRequests(c *gin.Context) {
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	r.metrics.requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
}

func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
