package lyrics

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
)

const (
	neteaseSearchPath = "/api/search/get/web"
	neteaseLyricPath  = "/api/song/lyric"
)

type neteaseSearchResult struct {
	Result struct {
		Songs []struct {
			ID int `json:"id"`
		} `json:"songs"`
	} `json:"result"`
}

type neteaseLyricResult struct {
	Nolyric bool `json:"nolyric"`
	Lrc     struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

// NeteaseClient 从网易云音乐获取歌词：先搜索歌曲 ID，再取 LRC 歌词
type NeteaseClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

func NewNeteaseClient(baseURL string, timeout time.Duration, logger *log.Logger) *NeteaseClient {
	if baseURL == "" {
		baseURL = "http://music.163.com"
	}
	return &NeteaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *NeteaseClient) Name() string { return "netease" }

func (c *NeteaseClient) FetchLyrics(ctx context.Context, artist, title string) (string, error) {
	params := url.Values{}
	params.Add("s", fmt.Sprintf("%s %s", title, artist))
	params.Add("type", "1")
	params.Add("limit", "1")

	var search neteaseSearchResult
	if err := c.getJSON(ctx, neteaseSearchPath+"?"+params.Encode(), &search); err != nil {
		return "", fmt.Errorf("netease search: %w", err)
	}
	if len(search.Result.Songs) == 0 || search.Result.Songs[0].ID == 0 {
		return "", ErrNotFound
	}
	id := search.Result.Songs[0].ID
	c.logger.Printf("    -> Netease song ID for lyrics: %d", id)

	var lyric neteaseLyricResult
	if err := c.getJSON(ctx, fmt.Sprintf("%s?id=%d&lv=1&kv=1&tv=-1", neteaseLyricPath, id), &lyric); err != nil {
		return "", fmt.Errorf("netease lyric: %w", err)
	}
	if lyric.Nolyric || lyric.Lrc.Lyric == "" {
		return "", ErrNotFound
	}
	return StripTimestamps(lyric.Lrc.Lyric), nil
}

func (c *NeteaseClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
