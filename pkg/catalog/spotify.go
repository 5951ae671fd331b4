package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAPIBase  = "https://api.spotify.com"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifySearch   = "/v1/search"
)

type spotifySearchResult struct {
	Tracks struct {
		Items []struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"items"`
	} `json:"tracks"`
}

// SpotifyProvider 通过 Spotify Web API 搜索曲目，使用 client credentials 授权
type SpotifyProvider struct {
	apiBase    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotifyProvider 创建 SpotifyProvider。apiBase 和 tokenURL 为空时使用官方地址。
func NewSpotifyProvider(clientID, clientSecret, apiBase, tokenURL string, timeout time.Duration, logger *log.Logger) *SpotifyProvider {
	if apiBase == "" {
		apiBase = spotifyAPIBase
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	// token 请求同样受超时约束
	base := &http.Client{Timeout: timeout}
	httpClient := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	httpClient.Timeout = timeout
	return &SpotifyProvider{
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (p *SpotifyProvider) Name() string { return "spotify" }

// SearchTrack 搜索 query 并返回排名第一的曲目
func (p *SpotifyProvider) SearchTrack(ctx context.Context, query string) (Match, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+spotifySearch+"?"+params.Encode(), nil)
	if err != nil {
		return Match{}, fmt.Errorf("failed to create spotify request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("spotify search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("spotify search returned status %d", resp.StatusCode)
	}
	var result spotifySearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Match{}, fmt.Errorf("failed to decode spotify response: %w", err)
	}
	if len(result.Tracks.Items) == 0 {
		return Match{}, ErrNoResult
	}

	item := result.Tracks.Items[0]
	if item.Name == "" || len(item.Artists) == 0 || item.Artists[0].Name == "" {
		return Match{}, ErrNoResult
	}
	m := Match{Title: item.Name, Artist: item.Artists[0].Name}
	if len(item.Album.Images) > 0 {
		m.CoverURL = item.Album.Images[0].URL
	}
	return m, nil
}
