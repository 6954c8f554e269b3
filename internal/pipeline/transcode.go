package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FFmpegTranscoder shells out to ffmpeg to extract a 16kHz mono mp3 from
// whatever container the upload arrived in. The speech service accepts
// nothing else.
type FFmpegTranscoder struct {
	path string
}

func NewFFmpegTranscoder(path string) *FFmpegTranscoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegTranscoder{path: path}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, t.path,
		"-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		dst,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debugf("transcoding %s -> %s", src, dst)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, lastStderrLine(&stderr))
	}
	return nil
}

// lastStderrLine keeps error messages readable: ffmpeg writes its banner and
// progress to stderr, the actual failure is on the last non-empty line.
func lastStderrLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
