package derive

import (
	"context"
	"fmt"
	"strings"
	"time"

	execute "github.com/alexellis/go-execute/v2"
	"go.uber.org/zap"
)

// FrameExtractor produces a still image from a video file. Implementations
// are expected to fail often (missing binary, unreadable input); callers
// treat failure as "no thumbnail", never as a fatal upload error.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, inputPath, outputPath string) error
}

// FFmpeg extracts one frame by invoking the ffmpeg binary. The subprocess is
// untrusted and potentially slow, so every invocation runs under a deadline
// and is killed on expiry.
type FFmpeg struct {
	Path       string        // binary name or absolute path
	Offset     time.Duration // seek position of the extracted frame
	ScaleWidth int           // output width, height keeps aspect ratio
	Timeout    time.Duration

	log *zap.SugaredLogger
}

func NewFFmpeg(path string, offset time.Duration, scaleWidth int, timeout time.Duration, log *zap.SugaredLogger) *FFmpeg {
	return &FFmpeg{Path: path, Offset: offset, ScaleWidth: scaleWidth, Timeout: timeout, log: log}
}

// ExtractFrame runs: ffmpeg -ss <offset> -i <in> -frames:v 1 -vf scale=W:-1 -y <out>
// Only the exit code is interpreted; stderr is logged for operators.
func (f *FFmpeg) ExtractFrame(ctx context.Context, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	task := execute.ExecTask{
		Command: f.Path,
		Args: []string{
			"-ss", formatOffset(f.Offset),
			"-i", inputPath,
			"-frames:v", "1",
			"-vf", fmt.Sprintf("scale=%d:-1", f.ScaleWidth),
			"-y", outputPath,
		},
	}
	res, err := task.Execute(ctx)
	if err != nil {
		f.log.Warnw("ffmpeg invocation failed", "input", inputPath, "error", err)
		return err
	}
	if res.ExitCode != 0 {
		f.log.Warnw("ffmpeg exited non-zero", "input", inputPath, "code", res.ExitCode,
			"stderr", strings.TrimSpace(res.Stderr))
		return fmt.Errorf("ffmpeg exit code %d", res.ExitCode)
	}
	return nil
}

// formatOffset renders a duration as the HH:MM:SS position ffmpeg expects.
func formatOffset(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
