package main

import (
	"fmt"
	"log"

	"github.com/yleoer/trackid/pkg/catalog"
	"github.com/yleoer/trackid/pkg/classifier"
	"github.com/yleoer/trackid/pkg/config"
	"github.com/yleoer/trackid/pkg/converter"
	"github.com/yleoer/trackid/pkg/database"
	"github.com/yleoer/trackid/pkg/enrich"
	"github.com/yleoer/trackid/pkg/label"
	"github.com/yleoer/trackid/pkg/lyrics"
	"github.com/yleoer/trackid/pkg/processor"
	"github.com/yleoer/trackid/pkg/recognition"
)

// app 持有启动时构建、之后只读的所有依赖
type app struct {
	cfg          *config.Config
	history      database.HistoryStore
	orchestrator *enrich.Orchestrator
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
}

// newApp 加载配置并初始化所有依赖服务
func newApp(logger *log.Logger, withHistory bool) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 1. 标签词表
	vocab, err := label.LoadVocabulary(cfg.LabelsPath, logger)
	if err != nil {
		return nil, err
	}
	// 2. 分类器
	cls := classifier.NewHTTPClassifier(cfg.TextModelURL, cfg.ImageModelURL, cfg.HTTPTimeout)
	// 3. 音乐目录
	catalogProvider, err := newCatalogProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	// 4. 歌词
	var lyricsProvider lyrics.Provider
	switch cfg.LyricsProvider {
	case "netease":
		lyricsProvider = lyrics.NewNeteaseClient(cfg.NeteaseAPI, cfg.HTTPTimeout, logger)
	default:
		lyricsProvider = lyrics.NewLRCLibClient(cfg.LRCLibAPI, cfg.HTTPTimeout)
	}
	// 5. 音频识别
	if cfg.AudDToken == "" {
		logger.Println("WARN: AUDD_API_TOKEN is not set; audio recognition will fail.")
	}
	pipeline := recognition.NewPipeline(
		cfg.TempDir,
		processor.NewFFmpegProcessor(cfg.FFmpegPath, cfg.TranscodeTimeout, logger),
		recognition.NewAudDClient(cfg.AudDAPI, cfg.AudDToken, cfg.HTTPTimeout),
		cfg.HTTPTimeout,
		logger,
	)
	// 6. 历史记录
	a := &app{cfg: cfg}
	if withHistory {
		a.history, err = database.NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	a.orchestrator = enrich.New(enrich.Deps{
		Vocabulary:      vocab,
		TextClassifier:  cls,
		ImageClassifier: cls,
		Audio:           pipeline,
		Catalog:         catalog.NewResolver(catalogProvider, cfg.HTTPTimeout, logger),
		Lyrics:          lyrics.NewResolver(lyricsProvider, cfg.HTTPTimeout, logger),
		History:         a.history,
		FailedTitle:     cfg.RecognitionFailedTitle,
	}, logger)
	return a, nil
}

func newCatalogProvider(cfg *config.Config, logger *log.Logger) (catalog.Provider, error) {
	switch cfg.CatalogProvider {
	case "netease":
		tc, err := converter.NewOpenCCConverter(logger)
		if err != nil {
			logger.Printf("WARN: %v; Netease queries will not be normalized.", err)
			tc = converter.Identity()
		}
		return catalog.NewNeteaseProvider(cfg.NeteaseAPI, cfg.HTTPTimeout, tc, logger), nil
	default:
		if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
			return nil, fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required for the spotify catalog")
		}
		return catalog.NewSpotifyProvider(cfg.SpotifyClientID, cfg.SpotifyClientSecret, "", "", cfg.HTTPTimeout, logger), nil
	}
}
