package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yleoer/trackid/pkg/catalog"
	"github.com/yleoer/trackid/pkg/classifier"
	"github.com/yleoer/trackid/pkg/database"
	"github.com/yleoer/trackid/pkg/label"
	"github.com/yleoer/trackid/pkg/lyrics"
	"github.com/yleoer/trackid/pkg/recognition"
)

// TrackResponse 是文本和音频识别的返回，四个字段始终存在
type TrackResponse struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"cover_url"`
	Lyrics   string `json:"lyrics"`
}

// ImageResponse 是图片识别的返回，没有歌词字段
type ImageResponse struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"cover_url"`
}

// AudioRecognizer 把音频片段识别为 (艺术家, 歌名)
type AudioRecognizer interface {
	Recognize(ctx context.Context, audio []byte) (recognition.Result, bool)
}

// Deps 是 Orchestrator 的依赖，全部在启动时构建，之后只读
type Deps struct {
	Vocabulary      *label.Vocabulary
	TextClassifier  classifier.TextClassifier
	ImageClassifier classifier.ImageClassifier
	Audio           AudioRecognizer
	Catalog         *catalog.Resolver
	Lyrics          *lyrics.Resolver
	History         database.HistoryStore // 可为 nil
	// FailedTitle 是识别失败时返回的标题，默认为空
	FailedTitle string
}

// Orchestrator 按输入类型组合分类、目录查询和歌词查询
type Orchestrator struct {
	deps   Deps
	logger *log.Logger
}

func New(deps Deps, logger *log.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, logger: logger}
}

// IdentifyText 文本 -> 分类器 -> 标签 -> 目录 -> 歌词
func (o *Orchestrator) IdentifyText(ctx context.Context, text string) (TrackResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TrackResponse{}, &InputError{Err: ErrNoText}
	}
	o.logger.Printf("-> Identifying text (%d chars)", len(text))

	idx, err := o.deps.TextClassifier.ClassifyText(ctx, text)
	if err != nil {
		return TrackResponse{}, &InferenceError{Modality: "text", Err: err}
	}
	guess, err := o.lookup("text", idx)
	if err != nil {
		return TrackResponse{}, err
	}

	resp, matched := o.enrichWithLyrics(ctx, guess)
	o.record("text", text, resp.Title, resp.Artist, matched)
	return resp, nil
}

// IdentifyImage 图片 -> 解码校验 -> 分类器 -> 标签 -> 目录，不查歌词
func (o *Orchestrator) IdentifyImage(ctx context.Context, data []byte, name string) (ImageResponse, error) {
	if len(data) == 0 {
		return ImageResponse{}, &InputError{Err: ErrNoFile}
	}
	img, format, err := classifier.DecodeImage(data)
	if err != nil {
		o.logger.Printf("-> Image load failed for %q: %v", name, err)
		return ImageResponse{}, &InputError{Err: fmt.Errorf("%w: %v", ErrInvalidImage, err)}
	}
	o.logger.Printf("-> Identifying %s image %q (%dx%d)", format, name, img.Bounds().Dx(), img.Bounds().Dy())

	idx, err := o.deps.ImageClassifier.ClassifyImage(ctx, img)
	if err != nil {
		return ImageResponse{}, &InferenceError{Modality: "image", Err: err}
	}
	guess, err := o.lookup("image", idx)
	if err != nil {
		return ImageResponse{}, err
	}

	match, ok := o.deps.Catalog.Resolve(ctx, guess.Artist, guess.Title)
	title, artist, cover := compose(guess, match, ok)
	o.record("image", name, title, artist, ok)
	return ImageResponse{Title: title, Artist: artist, CoverURL: cover}, nil
}

// IdentifyAudio 音频 -> 指纹识别 -> 目录 -> 歌词。识别失败时返回固定的失败结果，不是错误。
func (o *Orchestrator) IdentifyAudio(ctx context.Context, data []byte, name string) (TrackResponse, error) {
	resp, _, err := o.IdentifyAudioClip(ctx, data, name)
	return resp, err
}

// IdentifyAudioClip 与 IdentifyAudio 相同，额外返回指纹识别是否命中；
// 未命中时 resp 为 RecognitionFailed()
func (o *Orchestrator) IdentifyAudioClip(ctx context.Context, data []byte, name string) (TrackResponse, bool, error) {
	if len(data) == 0 {
		return TrackResponse{}, false, &InputError{Err: ErrNoFile}
	}
	o.logger.Printf("-> Identifying audio clip %q (%d bytes)", name, len(data))

	res, ok := o.deps.Audio.Recognize(ctx, data)
	if !ok {
		o.record("audio", name, "", "", false)
		return o.RecognitionFailed(), false, nil
	}

	guess := label.Label{Artist: res.Artist, Title: res.Title}
	resp, matched := o.enrichWithLyrics(ctx, guess)
	o.record("audio", name, resp.Title, resp.Artist, matched)
	return resp, true, nil
}

// RecognitionFailed 返回识别失败时的固定结果
func (o *Orchestrator) RecognitionFailed() TrackResponse {
	return TrackResponse{Title: o.deps.FailedTitle}
}

// enrichWithLyrics 目录查询之后再用解析后的名称查歌词，两步必须按顺序执行
func (o *Orchestrator) enrichWithLyrics(ctx context.Context, guess label.Label) (TrackResponse, bool) {
	match, ok := o.deps.Catalog.Resolve(ctx, guess.Artist, guess.Title)
	title, artist, cover := compose(guess, match, ok)
	return TrackResponse{
		Title:    title,
		Artist:   artist,
		CoverURL: cover,
		Lyrics:   o.deps.Lyrics.Resolve(ctx, artist, title),
	}, ok
}

func (o *Orchestrator) lookup(modality string, idx int) (label.Label, error) {
	guess, err := o.deps.Vocabulary.Lookup(idx)
	if err != nil {
		return label.Label{}, &InferenceError{Modality: modality, Err: err}
	}
	o.logger.Printf("  -> %s classifier predicted #%d: %s", modality, idx, guess)
	return guess, nil
}

func (o *Orchestrator) record(modality, query, title, artist string, matched bool) {
	if o.deps.History == nil {
		return
	}
	err := o.deps.History.AddEntry(database.Entry{
		Modality: modality,
		Query:    query,
		Title:    title,
		Artist:   artist,
		Matched:  matched,
	})
	if err != nil {
		o.logger.Printf("  -> ERROR: Failed to record identification: %v", err)
	}
}

// compose 优先使用目录结果，否则回退到目录查询前的猜测；封面默认为空
func compose(guess label.Label, m catalog.Match, ok bool) (title, artist, cover string) {
	if !ok {
		return guess.Title, guess.Artist, ""
	}
	return m.Title, m.Artist, m.CoverURL
}
