package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	interrors "github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/streams"
	"github.com/imtaco/stream-dashboard/streams/mocks"
)

func setupRouter(t *testing.T, limiter *rate.Limiter) (*Router, *mocks.MockStreamService) {
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockStreamService(ctrl)
	router := NewRouter(mockService, limiter, log.NewTest(t))
	return router, mockService
}

func serve(router *Router, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, body)
	router.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := serve(router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestListStreams(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)

		start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		mockService.EXPECT().ListStreams(gomock.Any()).Return([]*streams.Stream{
			{ID: "b", Name: "second", StartTime: start.Add(time.Minute), Width: 1280, Height: 720},
			{ID: "a", Name: "first", Description: "desc", StartTime: start, Width: 640, Height: 480},
		}, nil)

		w := serve(router, "GET", "/streams", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var list []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[0]["id"])
		assert.Equal(t, "a", list[1]["id"])
		assert.Equal(t, "desc", list[1]["description"])
		assert.Equal(t, "2024-05-01T12:00:00Z", list[1]["startTime"])
		assert.EqualValues(t, 640, list[1]["width"])
	})

	t.Run("Empty", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().ListStreams(gomock.Any()).Return(nil, nil)

		w := serve(router, "GET", "/streams", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("StoreError", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().ListStreams(gomock.Any()).Return(nil, errors.New("redis down"))

		w := serve(router, "GET", "/streams", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDeleteStream(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().DeleteStream(gomock.Any(), "abc-1").Return(nil)

		w := serve(router, "DELETE", "/stream/abc-1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().DeleteStream(gomock.Any(), "gone").
			Return(interrors.New(streams.ErrStreamNotFound, "stream gone not found"))

		w := serve(router, "DELETE", "/stream/gone", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		router, _ := setupRouter(t, nil)

		w := serve(router, "DELETE", "/stream/bad.id", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, false, response["success"])
		assert.NotEmpty(t, response["details"])
	})

	t.Run("InternalError", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().DeleteStream(gomock.Any(), "abc").Return(errors.New("boom"))

		w := serve(router, "DELETE", "/stream/abc", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetPlaylist(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		playlist := "#EXTM3U\n#EXT-X-ENDLIST\n"
		mockService.EXPECT().Playlist(gomock.Any(), "cam").Return([]byte(playlist), nil)

		w := serve(router, "GET", "/stream/cam", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
		assert.Equal(t, playlist, w.Body.String())
	})

	t.Run("Missing", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().Playlist(gomock.Any(), "cam").
			Return(nil, interrors.New(streams.ErrPlaylistNotFound, "no playlist"))

		w := serve(router, "GET", "/stream/cam", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		router, _ := setupRouter(t, nil)

		w := serve(router, "GET", "/stream/bad.id", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetSegment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)

		path := filepath.Join(t.TempDir(), "000.ts")
		require.NoError(t, os.WriteFile(path, []byte("segment-bytes"), 0o644))
		mockService.EXPECT().SegmentPath("cam", "000.ts").Return(path, nil)

		w := serve(router, "GET", "/segment/cam/000.ts", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "video/mp2t", w.Header().Get("Content-Type"))
		assert.Equal(t, "segment-bytes", w.Body.String())
	})

	t.Run("Missing", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().SegmentPath("cam", "004.ts").
			Return("", interrors.New(streams.ErrSegmentNotFound, "no segment"))

		w := serve(router, "GET", "/segment/cam/004.ts", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidSegmentID", func(t *testing.T) {
		router, _ := setupRouter(t, nil)

		w := serve(router, "GET", "/segment/cam/index.m3u8", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUpload(t *testing.T) {
	const target = "/upload?name=Demo&description=hello&width=1280&height=720"

	t.Run("Success", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)

		mockService.EXPECT().Upload(gomock.Any(), gomock.Any(), streams.IngestOptions{
			Name:        "Demo",
			Description: "hello",
			Width:       1280,
			Height:      720,
		}).DoAndReturn(func(_ context.Context, body io.Reader, _ streams.IngestOptions) (string, error) {
			data, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, "media", string(data))
			return "stream-1", nil
		})

		w := serve(router, "POST", target, strings.NewReader("media"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "stream-1", w.Body.String())
	})

	t.Run("MissingName", func(t *testing.T) {
		router, _ := setupRouter(t, nil)

		w := serve(router, "POST", "/upload?width=1280&height=720", strings.NewReader("media"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		router, _ := setupRouter(t, nil)

		w := serve(router, "POST", "/upload?name=Demo&width=0&height=720", strings.NewReader("media"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RateLimited", func(t *testing.T) {
		router, mockService := setupRouter(t, rate.NewLimiter(0, 1))
		mockService.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Return("stream-1", nil)

		first := serve(router, "POST", target, strings.NewReader("media"))
		second := serve(router, "POST", target, strings.NewReader("media"))

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("TooManyIngests", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", interrors.New(streams.ErrTooManyIngests, "busy"))

		w := serve(router, "POST", target, strings.NewReader("media"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Stopped", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("stream-1", interrors.New(streams.ErrIngestStopped, "stopped"))

		w := serve(router, "POST", target, strings.NewReader("media"))

		assert.Equal(t, http.StatusGone, w.Code)
	})

	t.Run("EncoderFailure", func(t *testing.T) {
		router, mockService := setupRouter(t, nil)
		mockService.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", interrors.New(streams.ErrIngestFailed, "exit status 1"))

		w := serve(router, "POST", target, strings.NewReader("media"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCORS(t *testing.T) {
	router, mockService := setupRouter(t, nil)
	mockService.EXPECT().ListStreams(gomock.Any()).Return([]*streams.Stream{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/streams", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	router.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
