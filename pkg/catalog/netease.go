package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yleoer/trackid/pkg/converter"
	"github.com/yleoer/trackid/pkg/util"
)

const neteaseSearchPath = "/api/search/get/web"

type neteaseSearchResult struct {
	Code   int `json:"code"`
	Result struct {
		Songs []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name   string `json:"name"`
				PicURL string `json:"picUrl"`
			} `json:"album"`
		} `json:"songs"`
	} `json:"result"`
}

// NeteaseProvider 是 Provider 的网易云音乐实现
type NeteaseProvider struct {
	baseURL    string
	httpClient *http.Client
	converter  converter.TextConverter
	logger     *log.Logger
}

// NewNeteaseProvider 创建一个新的 NeteaseProvider 实例。
// 查询词在发送前经 tc 做繁简转换。
func NewNeteaseProvider(baseURL string, timeout time.Duration, tc converter.TextConverter, logger *log.Logger) *NeteaseProvider {
	if baseURL == "" {
		baseURL = "http://music.163.com"
	}
	if tc == nil {
		tc = converter.Identity()
	}
	return &NeteaseProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		converter:  tc,
		logger:     logger,
	}
}

func (p *NeteaseProvider) Name() string { return "netease" }

// SearchTrack 搜索歌曲并返回第一个结果
func (p *NeteaseProvider) SearchTrack(ctx context.Context, query string) (Match, error) {
	params := url.Values{}
	params.Add("s", util.CollapseSpaces(p.converter.TradToSim(query)))
	params.Add("type", "1") // 1 for songs
	params.Add("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+neteaseSearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return Match{}, fmt.Errorf("failed to create netease request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("netease search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("netease search returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, fmt.Errorf("failed to read netease response: %w", err)
	}
	var result neteaseSearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return Match{}, fmt.Errorf("failed to decode netease response: %w", err)
	}
	if result.Code != 0 && result.Code != http.StatusOK {
		return Match{}, fmt.Errorf("netease search returned code %d", result.Code)
	}
	if len(result.Result.Songs) == 0 {
		return Match{}, ErrNoResult
	}

	// 只取第一个结果，不做重排
	song := result.Result.Songs[0]
	if song.Name == "" || len(song.Artists) == 0 || song.Artists[0].Name == "" {
		return Match{}, ErrNoResult
	}
	p.logger.Printf("    -> Matched netease song: %s (ID: %d)", song.Name, song.ID)
	return Match{
		Title:    song.Name,
		Artist:   song.Artists[0].Name,
		CoverURL: song.Album.PicURL,
	}, nil
}
