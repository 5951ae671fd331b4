package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type auddResponse struct {
	Status string `json:"status"`
	Result *struct {
		Artist string `json:"artist"`
		Title  string `json:"title"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

// AudDClient 把音频片段上传到 AudD 做指纹识别
type AudDClient struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

func NewAudDClient(apiURL, token string, timeout time.Duration) *AudDClient {
	if apiURL == "" {
		apiURL = "https://api.audd.io/"
	}
	return &AudDClient{
		apiURL:     apiURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Recognize 上传文件；非 200、空结果或 result 为 null 时返回 ErrNoMatch
func (c *AudDClient) Recognize(ctx context.Context, path string) (Result, error) {
	body, contentType, err := c.buildForm(path)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create audd request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("audd request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: audd returned status %d", ErrNoMatch, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read audd response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, ErrNoMatch
	}
	var ar auddResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return Result{}, fmt.Errorf("failed to decode audd response: %w", err)
	}
	if ar.Error != nil {
		return Result{}, fmt.Errorf("%w: audd error %d: %s", ErrNoMatch, ar.Error.Code, ar.Error.Message)
	}
	if ar.Result == nil || (ar.Result.Artist == "" && ar.Result.Title == "") {
		return Result{}, ErrNoMatch
	}
	return Result{Artist: ar.Result.Artist, Title: ar.Result.Title}, nil
}

func (c *AudDClient) buildForm(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("api_token", c.token); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("return", "spotify"); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy clip into form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
