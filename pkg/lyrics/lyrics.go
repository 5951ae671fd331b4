package lyrics

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// ErrNotFound 表示提供方没有这首歌的歌词
var ErrNotFound = errors.New("lyrics not found")

// Provider 是外部歌词服务
type Provider interface {
	Name() string
	FetchLyrics(ctx context.Context, artist, title string) (string, error)
}

// Resolver 查询歌词；任何失败都返回空字符串
type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   *log.Logger
}

func NewResolver(provider Provider, timeout time.Duration, logger *log.Logger) *Resolver {
	return &Resolver{provider: provider, timeout: timeout, logger: logger}
}

// Resolve 调用一次歌词服务。未找到、超时、网络错误都返回 ""。
// artist/title 应当是目录解析后的名称。
func (r *Resolver) Resolve(ctx context.Context, artist, title string) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.provider.FetchLyrics(ctx, artist, title)
	switch {
	case errors.Is(err, ErrNotFound):
		r.logger.Printf("  -> No %s lyrics for [%s - %s].", r.provider.Name(), artist, title)
		return ""
	case err != nil:
		r.logger.Printf("  -> ERROR: %s lyrics fetch failed for [%s - %s]: %v", r.provider.Name(), artist, title, err)
		return ""
	}
	return strings.TrimSpace(text)
}
