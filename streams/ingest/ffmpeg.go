package ingest

import (
	"os/exec"

	"github.com/imtaco/stream-dashboard/internal/constants"
)

// buildArgs returns the encoder arguments for a stream. The process runs with
// its working directory set to the stream directory.
func buildArgs(cfg *Config, streamID string) []string {
	return []string{
		"-hide_banner",
		"-i", "pipe:0",
		"-force_key_frames", "expr:gte(t,n_forced*3)",
		"-hls_time", "2",
		"-hls_list_size", "0",
		"-tune", "zerolatency",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", constants.SegmentTemplate,
		"-hls_base_url", cfg.SegmentBaseURL + streamID + "/",
		"-f", "hls",
		"-c:v", cfg.VideoCodec,
		constants.PlaylistFile,
	}
}

func spawnFFmpeg(ffmpegPath, dir string, args []string) *exec.Cmd {
	cmd := exec.Command(ffmpegPath, args...)
	cmd.Dir = dir
	return cmd
}
