package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr             string        `json:"listen_addr"`              // HTTP 监听地址
	DataDir                string        `json:"data_dir"`                 // SQLite数据库文件存放目录
	DBFileName             string        `json:"db_file_name"`             // SQLite数据库文件名
	DBPath                 string        `json:"-"`                        // 完整的数据库文件路径
	TempDir                string        `json:"temp_dir"`                 // 请求临时工作目录的父目录
	InboxDir               string        `json:"inbox_dir"`                // watch 模式监听目录
	FFmpegPath             string        `json:"ffmpeg_path"`              // FFmpeg 可执行文件路径
	LabelsPath             string        `json:"labels_path"`              // 标签词表文件
	TextModelURL           string        `json:"text_model_url"`           // 文本分类推理接口
	ImageModelURL          string        `json:"image_model_url"`          // 图像分类推理接口
	CatalogProvider        string        `json:"catalog_provider"`         // spotify | netease
	SpotifyClientID        string        `json:"-"`                        // Spotify client id
	SpotifyClientSecret    string        `json:"-"`                        // Spotify client secret
	NeteaseAPI             string        `json:"netease_api"`              // 网易云音乐 API 地址
	LyricsProvider         string        `json:"lyrics_provider"`          // lrclib | netease
	LRCLibAPI              string        `json:"lrclib_api"`               // LRCLib API 地址
	AudDAPI                string        `json:"audd_api"`                 // AudD 识别接口
	AudDToken              string        `json:"-"`                        // AudD api_token
	HTTPTimeout            time.Duration `json:"http_timeout"`             // 每次外部 HTTP 调用的超时
	TranscodeTimeout       time.Duration `json:"transcode_timeout"`        // FFmpeg 转码超时
	MaxUploadSize          int64         `json:"max_upload_size"`          // 上传大小上限 (字节)
	RecognitionFailedTitle string        `json:"recognition_failed_title"` // 识别失败时返回的标题
	StabilityCheckInterval time.Duration `json:"stability_check_interval"` // 每次检查的间隔
	StabilityQuietDuration time.Duration `json:"stability_quiet_duration"` // 文件在多长时间内没有变化才算稳定
	StabilityMaxWait       time.Duration `json:"stability_max_wait"`       // 最长等待文件稳定的时间
}

const (
	listenAddr = ":5001"
	dataDir    = "/app/data"
	inboxDir   = "/app/inbox"

	dbFileName = "trackid.db"
	ffmpeg     = "ffmpeg"
	labelsPath = "labels.txt"

	textModelURL  = "http://127.0.0.1:8501/v1/models/text:predict"
	imageModelURL = "http://127.0.0.1:8501/v1/models/image:predict"

	catalogProvider = "spotify"
	lyricsProvider  = "lrclib"
	neteaseAPI      = "http://music.163.com"
	lrclibAPI       = "https://lrclib.net"
	auddAPI         = "https://api.audd.io/"

	// 文件稳定性检查相关参数
	stabilityCheckInterval = 2 * time.Second
	stabilityQuietDuration = 5 * time.Second
	stabilityMaxWait       = 10 * time.Minute

	httpTimeout      = 15 * time.Second
	transcodeTimeout = 30 * time.Second
	maxUploadSize    = 20 << 20
)

// LoadConfig 从环境变量或默认值加载配置
func LoadConfig() (*Config, error) {
	// 尝试加载 .env 文件
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:             os.Getenv("LISTEN_ADDR"),
		DataDir:                os.Getenv("DATA_DIR"),
		DBFileName:             os.Getenv("DB_FILE_NAME"),
		TempDir:                os.Getenv("TEMP_DIR"),
		InboxDir:               os.Getenv("INBOX_DIR"),
		FFmpegPath:             os.Getenv("FFMPEG_PATH"),
		LabelsPath:             os.Getenv("LABELS_PATH"),
		TextModelURL:           os.Getenv("TEXT_MODEL_URL"),
		ImageModelURL:          os.Getenv("IMAGE_MODEL_URL"),
		CatalogProvider:        strings.ToLower(os.Getenv("CATALOG_PROVIDER")),
		SpotifyClientID:        os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret:    os.Getenv("SPOTIFY_CLIENT_SECRET"),
		NeteaseAPI:             os.Getenv("NETEASE_API"),
		LyricsProvider:         strings.ToLower(os.Getenv("LYRICS_PROVIDER")),
		LRCLibAPI:              os.Getenv("LRCLIB_API"),
		AudDAPI:                os.Getenv("AUDD_API"),
		AudDToken:              os.Getenv("AUDD_API_TOKEN"),
		HTTPTimeout:            parseDurationOrDefault(os.Getenv("HTTP_TIMEOUT"), httpTimeout),
		TranscodeTimeout:       parseDurationOrDefault(os.Getenv("TRANSCODE_TIMEOUT"), transcodeTimeout),
		MaxUploadSize:          parseInt64OrDefault(os.Getenv("MAX_UPLOAD_SIZE"), maxUploadSize),
		RecognitionFailedTitle: os.Getenv("RECOGNITION_FAILED_TITLE"),
		StabilityCheckInterval: parseDurationOrDefault(os.Getenv("STABILITY_CHECK_INTERVAL"), stabilityCheckInterval),
		StabilityQuietDuration: parseDurationOrDefault(os.Getenv("STABILITY_QUIET_DURATION"), stabilityQuietDuration),
		StabilityMaxWait:       parseDurationOrDefault(os.Getenv("STABILITY_MAX_WAIT"), stabilityMaxWait),
	}

	// 设置默认值
	setDefault(&cfg.ListenAddr, listenAddr)
	setDefault(&cfg.DataDir, dataDir)
	setDefault(&cfg.DBFileName, dbFileName)
	setDefault(&cfg.TempDir, os.TempDir())
	setDefault(&cfg.InboxDir, inboxDir)
	setDefault(&cfg.FFmpegPath, ffmpeg)
	setDefault(&cfg.LabelsPath, labelsPath)
	setDefault(&cfg.TextModelURL, textModelURL)
	setDefault(&cfg.ImageModelURL, imageModelURL)
	setDefault(&cfg.CatalogProvider, catalogProvider)
	setDefault(&cfg.NeteaseAPI, neteaseAPI)
	setDefault(&cfg.LyricsProvider, lyricsProvider)
	setDefault(&cfg.LRCLibAPI, lrclibAPI)
	setDefault(&cfg.AudDAPI, auddAPI)
	cfg.DBPath = filepath.Join(cfg.DataDir, cfg.DBFileName)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	// 确认目录存在
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", cfg.DataDir, err)
	}
	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory %s: %w", cfg.TempDir, err)
	}
	log.Printf("Configuration loaded: ListenAddr=%s, DBPath=%s, Catalog=%s, Lyrics=%s",
		cfg.ListenAddr, cfg.DBPath, cfg.CatalogProvider, cfg.LyricsProvider)
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CatalogProvider {
	case "spotify", "netease":
	default:
		return fmt.Errorf("unknown CATALOG_PROVIDER %q", c.CatalogProvider)
	}
	switch c.LyricsProvider {
	case "lrclib", "netease":
	default:
		return fmt.Errorf("unknown LYRICS_PROVIDER %q", c.LyricsProvider)
	}
	if c.HTTPTimeout <= 0 || c.TranscodeTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (http=%v, transcode=%v)", c.HTTPTimeout, c.TranscodeTimeout)
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func parseDurationOrDefault(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Warning: Could not parse duration '%s', using default '%v'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return d
}

func parseInt64OrDefault(s string, defaultValue int64) int64 {
	if s == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Warning: Could not parse integer '%s', using default '%d'.", s, defaultValue)
		return defaultValue
	}
	return n
}
