package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
}

type StorageConf struct {
	Dir          string `mapstructure:"dir"`
	PublicPrefix string `mapstructure:"public_prefix"`
}

type UploadConf struct {
	ImageMaxMB      int `mapstructure:"image_max_mb"`
	ImageMaxFiles   int `mapstructure:"image_max_files"`
	VideoMaxMB      int `mapstructure:"video_max_mb"`
	VideoMaxFiles   int `mapstructure:"video_max_files"`
	RateLimitPerMin int `mapstructure:"rate_limit_per_min"`
}

type DeriveConf struct {
	ThumbSize     int `mapstructure:"thumb_size"`
	ThumbQuality  int `mapstructure:"thumb_quality"`
	MaxWidth      int `mapstructure:"max_width"`
	MaxHeight     int `mapstructure:"max_height"`
	ResizeQuality int `mapstructure:"resize_quality"`
}

type FFmpegConf struct {
	Path           string `mapstructure:"path"`
	OffsetSeconds  int    `mapstructure:"offset_seconds"`
	ScaleWidth     int    `mapstructure:"scale_width"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AuthConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	AdminToken    string `mapstructure:"admin_token"`
}

type Config struct {
	App     AppConf     `mapstructure:"app"`
	Storage StorageConf `mapstructure:"storage"`
	Upload  UploadConf  `mapstructure:"upload"`
	Derive  DeriveConf  `mapstructure:"derive"`
	FFmpeg  FFmpegConf  `mapstructure:"ffmpeg"`
	Auth    AuthConf    `mapstructure:"auth"`
	Log     struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	FFmpegTimeout   time.Duration
	FFmpegOffset    time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "uploads"
	}
	if cfg.Storage.PublicPrefix == "" {
		cfg.Storage.PublicPrefix = "/uploads"
	}
	if cfg.Upload.ImageMaxMB == 0 {
		cfg.Upload.ImageMaxMB = 10
	}
	if cfg.Upload.ImageMaxFiles == 0 {
		cfg.Upload.ImageMaxFiles = 10
	}
	if cfg.Upload.VideoMaxMB == 0 {
		cfg.Upload.VideoMaxMB = 200
	}
	if cfg.Upload.VideoMaxFiles == 0 {
		cfg.Upload.VideoMaxFiles = 5
	}
	if cfg.Upload.RateLimitPerMin == 0 {
		cfg.Upload.RateLimitPerMin = 120
	}
	if cfg.Derive.ThumbSize == 0 {
		cfg.Derive.ThumbSize = 200
	}
	if cfg.Derive.ThumbQuality == 0 {
		cfg.Derive.ThumbQuality = 80
	}
	if cfg.Derive.MaxWidth == 0 {
		cfg.Derive.MaxWidth = 800
	}
	if cfg.Derive.MaxHeight == 0 {
		cfg.Derive.MaxHeight = 600
	}
	if cfg.Derive.ResizeQuality == 0 {
		cfg.Derive.ResizeQuality = 85
	}
	if cfg.FFmpeg.Path == "" {
		cfg.FFmpeg.Path = "ffmpeg"
	}
	if cfg.FFmpeg.OffsetSeconds == 0 {
		cfg.FFmpeg.OffsetSeconds = 1
	}
	if cfg.FFmpeg.ScaleWidth == 0 {
		cfg.FFmpeg.ScaleWidth = 320
	}
	if cfg.FFmpeg.TimeoutSeconds == 0 {
		cfg.FFmpeg.TimeoutSeconds = 30
	}

	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second
	cfg.FFmpegTimeout = time.Duration(cfg.FFmpeg.TimeoutSeconds) * time.Second
	cfg.FFmpegOffset = time.Duration(cfg.FFmpeg.OffsetSeconds) * time.Second
}

// ImageLimitBytes and VideoLimitBytes are the per-file ceilings.
func (c *Config) ImageLimitBytes() int64 { return int64(c.Upload.ImageMaxMB) << 20 }
func (c *Config) VideoLimitBytes() int64 { return int64(c.Upload.VideoMaxMB) << 20 }

// BodyLimitBytes bounds a whole multipart request body: a full video batch
// plus headroom for boundaries and fields.
func (c *Config) BodyLimitBytes() int {
	return int(c.VideoLimitBytes())*c.Upload.VideoMaxFiles + (10 << 20)
}
