package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yleoer/trackid/pkg/scheduler"
	"github.com/yleoer/trackid/pkg/server"
)

var (
	version = "0.1.0"

	textInput  string
	imageInput string
	audioInput string
)

// logger 所有组件共用的日志器
var logger = log.New(os.Stdout, "[TrackID] ", log.LstdFlags|log.Lshortfile)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trackid",
	Short: "Identify music tracks from lyrics, cover art or audio clips",
	Long: `TrackID guesses a track from a lyric snippet, an album cover or a
short audio clip, then enriches the guess with catalog metadata and lyrics.

Pipeline: input → classifier / recognizer → catalog lookup → lyrics`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API on LISTEN_ADDR (default :5001).

Routes:
  POST /predict/text     {"text": "..."}
  POST /predict/image    multipart field "file"
  POST /predict/audio    multipart field "file"
  GET  /history          recent identifications`,
	RunE: runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Identify audio clips dropped into INBOX_DIR",
	Long: `Watch INBOX_DIR for new audio clips. Each clip is identified once it
stops changing; identified clips are removed, failed ones are moved to
INBOX_DIR/failed.`,
	RunE: runWatch,
}

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify a single input and print the result as JSON",
	Long: `Identify one lyric snippet, image or audio clip.

Examples:
  trackid identify --text "hello from the other side"
  trackid identify --image cover.jpg
  trackid identify --audio clip.m4a`,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().StringVarP(&textInput, "text", "t", "", "Lyric snippet")
	identifyCmd.Flags().StringVarP(&imageInput, "image", "i", "", "Image file (JPEG, PNG, GIF, BMP or WebP)")
	identifyCmd.Flags().StringVarP(&audioInput, "audio", "a", "", "Audio clip")
	identifyCmd.MarkFlagsMutuallyExclusive("text", "image", "audio")
	identifyCmd.MarkFlagsOneRequired("text", "image", "audio")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Println("Starting TrackID server...")
	a, err := newApp(logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		Addr:          a.cfg.ListenAddr,
		MaxUploadSize: a.cfg.MaxUploadSize,
	}, a.orchestrator, a.history, logger)
	return srv.Run()
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(a.cfg.InboxDir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory %s: %w", a.cfg.InboxDir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ts := scheduler.NewTaskScheduler(a.cfg, a.orchestrator, logger)
	ts.InitialScan()
	logger.Println("Application is running. Press Ctrl+C to exit.")
	return ts.Watch(ctx)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var result any
	switch {
	case textInput != "":
		result, err = a.orchestrator.IdentifyText(ctx, textInput)
	case imageInput != "":
		result, err = identifyFile(imageInput, func(data []byte, name string) (any, error) {
			return a.orchestrator.IdentifyImage(ctx, data, name)
		})
	case audioInput != "":
		result, err = identifyFile(audioInput, func(data []byte, name string) (any, error) {
			return a.orchestrator.IdentifyAudio(ctx, data, name)
		})
	default:
		return errors.New("one of --text, --image or --audio is required")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func identifyFile(path string, identify func(data []byte, name string) (any, error)) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return identify(data, filepath.Base(path))
}
