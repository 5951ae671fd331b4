package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"
)

// TextClassifier 把一段文本映射到标签下标
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (int, error)
}

// ImageClassifier 把解码后的图片映射到标签下标
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, img image.Image) (int, error)
}

// prediction 是推理服务的返回：直接给出 index，或者给出 logits 由客户端取 argmax
type prediction struct {
	Index       *int        `json:"index"`
	Logits      []float64   `json:"logits"`
	Predictions [][]float64 `json:"predictions"`
}

func (p prediction) argmax() (int, error) {
	if p.Index != nil {
		return *p.Index, nil
	}
	logits := p.Logits
	if len(logits) == 0 && len(p.Predictions) > 0 {
		logits = p.Predictions[0]
	}
	if len(logits) == 0 {
		return 0, errors.New("prediction has neither index nor logits")
	}
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return best, nil
}

// HTTPClassifier 调用模型推理服务。同一个类型同时实现文本和图片分类。
type HTTPClassifier struct {
	textURL    string
	imageURL   string
	httpClient *http.Client
}

func NewHTTPClassifier(textURL, imageURL string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		textURL:    textURL,
		imageURL:   imageURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ClassifyText 发送 {"text": ...} 并返回预测下标
func (c *HTTPClassifier) ClassifyText(ctx context.Context, text string) (int, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, err
	}
	return c.predict(ctx, c.textURL, "application/json", body)
}

// ClassifyImage 把图片缩放到模型输入尺寸，以 PNG 发送
func (c *HTTPClassifier) ClassifyImage(ctx context.Context, img image.Image) (int, error) {
	body, err := EncodeModelInput(img)
	if err != nil {
		return 0, err
	}
	return c.predict(ctx, c.imageURL, "image/png", body)
}

func (c *HTTPClassifier) predict(ctx context.Context, url, contentType string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("inference returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, fmt.Errorf("failed to decode inference response: %w", err)
	}
	return p.argmax()
}
