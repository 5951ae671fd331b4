package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const lrclibGetPath = "/api/get"

type lrclibResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// LRCLibClient 从 LRCLib 获取纯文本歌词
type LRCLibClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLRCLibClient(baseURL string, timeout time.Duration) *LRCLibClient {
	if baseURL == "" {
		baseURL = "https://lrclib.net"
	}
	return &LRCLibClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *LRCLibClient) Name() string { return "lrclib" }

// FetchLyrics 返回纯文本歌词；只有带时间轴的歌词时去掉时间戳
func (c *LRCLibClient) FetchLyrics(ctx context.Context, artist, title string) (string, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+lrclibGetPath+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lrclib request: %w", err)
	}
	req.Header.Set("User-Agent", "trackid/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lrclib returned status %d", resp.StatusCode)
	}

	var apiResp lrclibResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode lrclib response: %w", err)
	}
	switch {
	case apiResp.PlainLyrics != "":
		return apiResp.PlainLyrics, nil
	case apiResp.SyncedLyrics != "":
		return StripTimestamps(apiResp.SyncedLyrics), nil
	default:
		return "", ErrNotFound
	}
}
