package processor

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Transcoder 把音频文件转换成识别服务需要的格式
type Transcoder interface {
	Transcode(ctx context.Context, inputFile, outputFile string) error
}

// FFmpegProcessor 负责通过 FFmpeg 转码音频片段
type FFmpegProcessor struct {
	ffmpegPath string
	timeout    time.Duration
	logger     *log.Logger
}

// NewFFmpegProcessor 创建一个新的 FFmpegProcessor 实例
func NewFFmpegProcessor(ffmpegPath string, timeout time.Duration, logger *log.Logger) *FFmpegProcessor {
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, timeout: timeout, logger: logger}
}

// Transcode 调用 FFmpeg 转码，输出格式由 outputFile 的扩展名决定
func (p *FFmpegProcessor) Transcode(ctx context.Context, inputFile, outputFile string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := p.buildFFmpegCommand(ctx, inputFile, outputFile)
	p.logger.Printf("  -> Executing FFmpeg... Command: %s %s", p.ffmpegPath, strings.Join(cmd.Args[1:], " "))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg timed out after %v: %w", p.timeout, ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w\nstderr: %s", err, lastLines(stderr.String(), 5))
	}
	p.logger.Printf("  -> Successfully created %s", outputFile)
	return nil
}

// buildFFmpegCommand 构建转码命令：单声道 44.1kHz，覆盖已有输出
func (p *FFmpegProcessor) buildFFmpegCommand(ctx context.Context, inputFile, outputFile string) *exec.Cmd {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputFile,
		"-vn",
		"-ac", "1",
		"-ar", "44100",
		outputFile,
	}
	return exec.CommandContext(ctx, p.ffmpegPath, args...)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
