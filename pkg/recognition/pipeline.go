package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/yleoer/trackid/pkg/processor"
)

// ErrNoMatch 表示识别服务没有给出结果
var ErrNoMatch = errors.New("no fingerprint match")

// Result 是指纹识别给出的原始猜测
type Result struct {
	Artist string
	Title  string
}

// Recognizer 是外部指纹识别服务
type Recognizer interface {
	Recognize(ctx context.Context, path string) (Result, error)
}

// Pipeline 负责一次音频识别的完整过程：落盘、转码、上传、清理
type Pipeline struct {
	tempDir    string
	transcoder processor.Transcoder
	recognizer Recognizer
	timeout    time.Duration
	logger     *log.Logger
}

// NewPipeline 创建 Pipeline；tempDir 为每个请求临时目录的父目录，timeout 作用于识别请求
func NewPipeline(tempDir string, transcoder processor.Transcoder, recognizer Recognizer, timeout time.Duration, logger *log.Logger) *Pipeline {
	return &Pipeline{
		tempDir:    tempDir,
		transcoder: transcoder,
		recognizer: recognizer,
		timeout:    timeout,
		logger:     logger,
	}
}

// Recognize 识别一段音频。没有结果或任何失败都返回 false。
// 本次请求创建的临时文件在所有返回路径上都会被删除，包括 panic。
func (p *Pipeline) Recognize(ctx context.Context, audio []byte) (Result, bool) {
	res, err := p.recognize(ctx, audio)
	switch {
	case err == nil:
		p.logger.Printf("  -> Recognized: %s - %s", res.Artist, res.Title)
		return res, true
	case errors.Is(err, ErrNoMatch):
		p.logger.Printf("  -> No fingerprint match: %v", err)
	default:
		p.logger.Printf("  -> ERROR: Audio recognition failed: %v", err)
	}
	return Result{}, false
}

func (p *Pipeline) recognize(ctx context.Context, audio []byte) (Result, error) {
	ws, err := createWorkspace(p.tempDir)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := ws.cleanup(); err != nil {
			p.logger.Printf("  -> ERROR: Failed to remove workspace %s: %v", ws.dir, err)
		}
	}()

	info := sniffClip(audio)
	input := ws.input(info.ext)
	if err := os.WriteFile(input, audio, 0600); err != nil {
		return Result{}, fmt.Errorf("write clip: %w", err)
	}
	if info.duration > 0 {
		p.logger.Printf("  -> Received %s clip (%d bytes, %v)", info.ext, len(audio), info.duration.Round(time.Millisecond))
	} else {
		p.logger.Printf("  -> Received %s clip (%d bytes)", info.ext, len(audio))
	}

	// 转码失败时仍然用原始文件提交，由识别服务返回无结果
	clip := ws.transcoded()
	if err := p.transcoder.Transcode(ctx, input, clip); err != nil {
		p.logger.Printf("  -> WARN: Transcoding failed, submitting original clip: %v", err)
		clip = input
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.recognizer.Recognize(ctx, clip)
}
