package ingest

import (
	"time"

	"github.com/spf13/viper"

	"github.com/imtaco/stream-dashboard/internal/constants"
)

type Config struct {
	ResourceDir      string        `mapstructure:"resource_dir"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`
	VideoCodec       string        `mapstructure:"video_codec"`
	SegmentBaseURL   string        `mapstructure:"segment_base_url"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"`
	ForceKillTimeout time.Duration `mapstructure:"force_kill_timeout"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("resource_dir"), "resources")
	v.SetDefault(p("ffmpeg_path"), "ffmpeg")
	v.SetDefault(p("video_codec"), "libx264")
	// playlists point at the dashboard proxy path, not at this service
	v.SetDefault(p("segment_base_url"), constants.BackendPrefix+constants.SegmentRoutePrefix)
	v.SetDefault(p("max_concurrent"), 8)
	v.SetDefault(p("force_kill_timeout"), "5s")
}
