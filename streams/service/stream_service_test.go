package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/streams"
	"github.com/imtaco/stream-dashboard/streams/mocks"
)

const (
	livePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:2
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:2.000000,
/backend/segment/cam/000.ts
`
	closedPlaylist = livePlaylist + "#EXT-X-ENDLIST\n"
)

type StreamServiceTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockStore    *mocks.MockStreamStore
	mockIngester *mocks.MockIngester
	resourceDir  string
	svc          *streamServiceImpl
	ctx          context.Context
}

func TestStreamServiceSuite(t *testing.T) {
	suite.Run(t, new(StreamServiceTestSuite))
}

func (s *StreamServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStreamStore(s.ctrl)
	s.mockIngester = mocks.NewMockIngester(s.ctrl)
	s.resourceDir = s.T().TempDir()
	s.ctx = context.Background()

	svc, err := NewStreamService(s.mockStore, s.mockIngester, s.resourceDir, 8, log.NewTest(s.T()))
	s.Require().NoError(err)
	s.svc = svc.(*streamServiceImpl)
}

func (s *StreamServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StreamServiceTestSuite) writeFile(streamID, name, content string) {
	dir := filepath.Join(s.resourceDir, streamID)
	s.Require().NoError(os.MkdirAll(dir, 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func (s *StreamServiceTestSuite) TestListStreams() {
	expected := []*streams.Stream{{ID: "cam", Width: 1280, Height: 720, StartTime: time.Now()}}
	s.mockStore.EXPECT().List(gomock.Any()).Return(expected, nil)

	list, err := s.svc.ListStreams(s.ctx)
	s.Require().NoError(err)
	s.Equal(expected, list)
}

func (s *StreamServiceTestSuite) TestDeleteStream() {
	s.writeFile("cam", "index.m3u8", closedPlaylist)

	gomock.InOrder(
		s.mockIngester.EXPECT().Stop(gomock.Any(), "cam").Return(false, nil),
		s.mockStore.EXPECT().Delete(gomock.Any(), "cam").Return(true, nil),
	)

	s.Require().NoError(s.svc.DeleteStream(s.ctx, "cam"))
	s.NoDirExists(filepath.Join(s.resourceDir, "cam"))
}

func (s *StreamServiceTestSuite) TestDeleteLiveStream() {
	s.writeFile("cam", "000.ts", "ts")

	gomock.InOrder(
		s.mockIngester.EXPECT().Stop(gomock.Any(), "cam").Return(true, nil),
		s.mockStore.EXPECT().Delete(gomock.Any(), "cam").Return(false, nil),
	)

	s.Require().NoError(s.svc.DeleteStream(s.ctx, "cam"))
	s.NoDirExists(filepath.Join(s.resourceDir, "cam"))
}

func (s *StreamServiceTestSuite) TestDeleteUnknownStream() {
	s.mockIngester.EXPECT().Stop(gomock.Any(), "ghost").Return(false, nil)
	s.mockStore.EXPECT().Delete(gomock.Any(), "ghost").Return(false, nil)

	err := s.svc.DeleteStream(s.ctx, "ghost")
	s.True(errors.Is(err, streams.ErrStreamNotFound))
}

func (s *StreamServiceTestSuite) TestDeleteEvictsCachedPlaylist() {
	s.writeFile("cam", "index.m3u8", closedPlaylist)
	_, err := s.svc.Playlist(s.ctx, "cam")
	s.Require().NoError(err)
	s.True(s.svc.playlists.Contains("cam"))

	s.mockIngester.EXPECT().Stop(gomock.Any(), "cam").Return(false, nil)
	s.mockStore.EXPECT().Delete(gomock.Any(), "cam").Return(true, nil)
	s.Require().NoError(s.svc.DeleteStream(s.ctx, "cam"))

	s.False(s.svc.playlists.Contains("cam"))
	_, err = s.svc.Playlist(s.ctx, "cam")
	s.True(errors.Is(err, streams.ErrPlaylistNotFound))
}

func (s *StreamServiceTestSuite) TestUpload() {
	body := strings.NewReader("media")
	opts := streams.IngestOptions{Name: "desk", Width: 640, Height: 480}
	s.mockIngester.EXPECT().Ingest(gomock.Any(), body, opts).Return("new-id", nil)

	id, err := s.svc.Upload(s.ctx, body, opts)
	s.Require().NoError(err)
	s.Equal("new-id", id)
}

func (s *StreamServiceTestSuite) TestDeleteWaitsForInFlightPlaylistRead() {
	s.writeFile("cam", "index.m3u8", closedPlaylist)
	s.mockIngester.EXPECT().Stop(gomock.Any(), "cam").Return(false, nil)
	s.mockStore.EXPECT().Delete(gomock.Any(), "cam").Return(true, nil)

	// a viewer read that is still running when the delete arrives
	s.svc.dirMu.RLock()
	done := make(chan error, 1)
	go func() {
		done <- s.svc.DeleteStream(s.ctx, "cam")
	}()

	s.Never(func() bool { return len(done) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	s.DirExists(filepath.Join(s.resourceDir, "cam"))

	// the read finishes by caching the closed playlist
	s.svc.playlists.Add("cam", []byte(closedPlaylist))
	s.svc.dirMu.RUnlock()

	s.Require().NoError(<-done)
	s.False(s.svc.playlists.Contains("cam"))
	_, err := s.svc.Playlist(s.ctx, "cam")
	s.True(errors.Is(err, streams.ErrPlaylistNotFound))
}

func (s *StreamServiceTestSuite) TestDeleteDuringConcurrentReads() {
	s.writeFile("cam", "index.m3u8", closedPlaylist)
	s.mockIngester.EXPECT().Stop(gomock.Any(), "cam").Return(false, nil)
	s.mockStore.EXPECT().Delete(gomock.Any(), "cam").Return(true, nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = s.svc.readPlaylist("cam")
				}
			}
		}()
	}

	s.Require().NoError(s.svc.DeleteStream(s.ctx, "cam"))
	close(stop)
	wg.Wait()

	s.False(s.svc.playlists.Contains("cam"))
}

func (s *StreamServiceTestSuite) TestPlaylistLiveNotCached() {
	s.writeFile("cam", "index.m3u8", livePlaylist)

	data, err := s.svc.Playlist(s.ctx, "cam")
	s.Require().NoError(err)
	s.Equal(livePlaylist, string(data))
	s.False(s.svc.playlists.Contains("cam"))

	// live playlists are re-read every time
	s.writeFile("cam", "index.m3u8", closedPlaylist)
	data, err = s.svc.Playlist(s.ctx, "cam")
	s.Require().NoError(err)
	s.Equal(closedPlaylist, string(data))
	s.True(s.svc.playlists.Contains("cam"))
}

func (s *StreamServiceTestSuite) TestPlaylistClosedServedFromCache() {
	s.writeFile("cam", "index.m3u8", closedPlaylist)

	_, err := s.svc.Playlist(s.ctx, "cam")
	s.Require().NoError(err)

	s.Require().NoError(os.Remove(filepath.Join(s.resourceDir, "cam", "index.m3u8")))
	data, err := s.svc.Playlist(s.ctx, "cam")
	s.Require().NoError(err)
	s.Equal(closedPlaylist, string(data))
}

func (s *StreamServiceTestSuite) TestPlaylistUnparseableServedRaw() {
	s.writeFile("cam", "index.m3u8", "#EXTM3U\n#EXTINF:")

	data, err := s.svc.Playlist(s.ctx, "cam")
	s.Require().NoError(err)
	s.Equal("#EXTM3U\n#EXTINF:", string(data))
	s.False(s.svc.playlists.Contains("cam"))
}

func (s *StreamServiceTestSuite) TestPlaylistMissing() {
	_, err := s.svc.Playlist(s.ctx, "nothing")
	s.True(errors.Is(err, streams.ErrPlaylistNotFound))
}

func (s *StreamServiceTestSuite) TestPlaylistConcurrentReads() {
	s.writeFile("cam", "index.m3u8", livePlaylist)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := s.svc.Playlist(s.ctx, "cam")
			s.NoError(err)
			s.Equal(livePlaylist, string(data))
		}()
	}
	wg.Wait()
}

func (s *StreamServiceTestSuite) TestSegmentPath() {
	s.writeFile("cam", "000.ts", "ts")

	path, err := s.svc.SegmentPath("cam", "000.ts")
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.resourceDir, "cam", "000.ts"), path)

	_, err = s.svc.SegmentPath("cam", "001.ts")
	s.True(errors.Is(err, streams.ErrSegmentNotFound))
}
