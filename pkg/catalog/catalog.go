package catalog

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrNoResult 表示某个查询在目录中没有任何结果
var ErrNoResult = errors.New("no catalog result")

// Match 是目录中找到的规范化曲目信息。要么完整存在，要么不存在。
type Match struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"cover_url"`
}

// Provider 是外部音乐目录的搜索接口。每次调用只请求排名第一的结果；
// 没有结果时返回 ErrNoResult。
type Provider interface {
	Name() string
	SearchTrack(ctx context.Context, query string) (Match, error)
}

// Resolver 按固定顺序的候选查询在目录中查找曲目
type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   *log.Logger
}

// NewResolver 创建一个 Resolver；timeout 作用于每一次查询
func NewResolver(provider Provider, timeout time.Duration, logger *log.Logger) *Resolver {
	return &Resolver{provider: provider, timeout: timeout, logger: logger}
}

// Queries 返回按顺序尝试的两个候选查询："{title} {artist}"，然后 "{artist} {title}"
func Queries(artist, title string) []string {
	return []string{title + " " + artist, artist + " " + title}
}

// Resolve 依次尝试候选查询，返回第一个非空结果。
// 任何提供方错误都按"无结果"处理，不会向上传播。
func (r *Resolver) Resolve(ctx context.Context, artist, title string) (Match, bool) {
	for _, query := range Queries(artist, title) {
		m, err := r.search(ctx, query)
		switch {
		case err == nil:
			r.logger.Printf("  -> Catalog match via %s for '%s': %s - %s", r.provider.Name(), query, m.Artist, m.Title)
			return m, true
		case errors.Is(err, ErrNoResult):
			r.logger.Printf("  -> No %s results for '%s'.", r.provider.Name(), query)
		default:
			r.logger.Printf("  -> WARN: %s search failed for '%s': %v", r.provider.Name(), query, err)
		}
	}
	return Match{}, false
}

func (r *Resolver) search(ctx context.Context, query string) (Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	m, err := r.provider.SearchTrack(ctx, query)
	if err != nil {
		return Match{}, err
	}
	if m.Title == "" || m.Artist == "" {
		return Match{}, ErrNoResult
	}
	return m, nil
}
