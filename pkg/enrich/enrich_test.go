package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/yleoer/trackid/pkg/catalog"
	"github.com/yleoer/trackid/pkg/label"
	"github.com/yleoer/trackid/pkg/lyrics"
	"github.com/yleoer/trackid/pkg/recognition"
)

var discard = log.New(io.Discard, "", 0)

type fakeClassifier struct {
	idx   int
	err   error
	calls int
}

func (f *fakeClassifier) ClassifyText(ctx context.Context, text string) (int, error) {
	f.calls++
	return f.idx, f.err
}

func (f *fakeClassifier) ClassifyImage(ctx context.Context, img image.Image) (int, error) {
	f.calls++
	return f.idx, f.err
}

type fakeCatalog struct {
	results map[string]catalog.Match
	err     error
	calls   []string
}

func (f *fakeCatalog) Name() string { return "fake" }

func (f *fakeCatalog) SearchTrack(ctx context.Context, query string) (catalog.Match, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return catalog.Match{}, f.err
	}
	if m, ok := f.results[query]; ok {
		return m, nil
	}
	return catalog.Match{}, catalog.ErrNoResult
}

type fakeLyrics struct {
	text   string
	err    error
	artist string
	title  string
	calls  int
}

func (f *fakeLyrics) Name() string { return "fake" }

func (f *fakeLyrics) FetchLyrics(ctx context.Context, artist, title string) (string, error) {
	f.calls++
	f.artist, f.title = artist, title
	return f.text, f.err
}

type fakeAudio struct {
	res recognition.Result
	ok  bool
}

func (f fakeAudio) Recognize(ctx context.Context, audio []byte) (recognition.Result, bool) {
	return f.res, f.ok
}

type fixture struct {
	classifier *fakeClassifier
	catalog    *fakeCatalog
	lyrics     *fakeLyrics
	deps       Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vocab, err := label.NewVocabulary([]string{"Adele - Hello", "The Beatles - Let It Be - Live"})
	if err != nil {
		t.Fatalf("NewVocabulary: %v", err)
	}
	f := &fixture{
		classifier: &fakeClassifier{},
		catalog:    &fakeCatalog{},
		lyrics:     &fakeLyrics{},
	}
	f.deps = Deps{
		Vocabulary:      vocab,
		TextClassifier:  f.classifier,
		ImageClassifier: f.classifier,
		Audio:           fakeAudio{},
		Catalog:         catalog.NewResolver(f.catalog, time.Second, discard),
		Lyrics:          lyrics.NewResolver(f.lyrics, time.Second, discard),
	}
	return f
}

func (f *fixture) orchestrator() *Orchestrator { return New(f.deps, discard) }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 0xFF, A: 0xFF})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jsonKeys(t *testing.T, v any) []string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestIdentifyTextUsesCatalogNamesForLyrics(t *testing.T) {
	f := newFixture(t)
	f.catalog.results = map[string]catalog.Match{
		"Hello Adele": {Title: "Hello (Radio Edit)", Artist: "ADELE", CoverURL: "https://img/hello.jpg"},
	}
	f.lyrics.text = "  Hello, it's me  "

	got, err := f.orchestrator().IdentifyText(context.Background(), "  hello from the other side ")
	if err != nil {
		t.Fatalf("IdentifyText() unexpected error: %v", err)
	}
	want := TrackResponse{Title: "Hello (Radio Edit)", Artist: "ADELE", CoverURL: "https://img/hello.jpg", Lyrics: "Hello, it's me"}
	if got != want {
		t.Fatalf("IdentifyText() = %+v, want %+v", got, want)
	}
	if f.lyrics.artist != "ADELE" || f.lyrics.title != "Hello (Radio Edit)" {
		t.Fatalf("lyrics called with %q/%q, want catalog-resolved names", f.lyrics.artist, f.lyrics.title)
	}
}

func TestIdentifyTextFallsBackToGuess(t *testing.T) {
	f := newFixture(t)
	f.lyrics.err = lyrics.ErrNotFound

	got, err := f.orchestrator().IdentifyText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("IdentifyText() unexpected error: %v", err)
	}
	want := TrackResponse{Title: "Hello", Artist: "Adele"}
	if got != want {
		t.Fatalf("IdentifyText() = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(f.catalog.calls, []string{"Hello Adele", "Adele Hello"}) {
		t.Fatalf("catalog calls = %q", f.catalog.calls)
	}
	if f.lyrics.artist != "Adele" || f.lyrics.title != "Hello" {
		t.Fatalf("lyrics called with %q/%q, want raw guess", f.lyrics.artist, f.lyrics.title)
	}
}

func TestIdentifyTextSplitsOnFirstDelimiter(t *testing.T) {
	f := newFixture(t)
	f.classifier.idx = 1

	got, err := f.orchestrator().IdentifyText(context.Background(), "let it be")
	if err != nil {
		t.Fatalf("IdentifyText() unexpected error: %v", err)
	}
	if got.Artist != "The Beatles" || got.Title != "Let It Be - Live" {
		t.Fatalf("IdentifyText() = %+v", got)
	}
}

func TestIdentifyTextEmptyInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.orchestrator().IdentifyText(context.Background(), " \n\t")
	var inErr *InputError
	if !errors.As(err, &inErr) || !errors.Is(err, ErrNoText) {
		t.Fatalf("IdentifyText() error = %v, want InputError(ErrNoText)", err)
	}
	if f.classifier.calls != 0 || len(f.catalog.calls) != 0 {
		t.Fatalf("collaborators called on invalid input")
	}
}

func TestIdentifyTextInferenceFailure(t *testing.T) {
	f := newFixture(t)
	f.classifier.err = errors.New("model not loaded")
	_, err := f.orchestrator().IdentifyText(context.Background(), "hello")
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("IdentifyText() error = %v, want InferenceError", err)
	}

	f = newFixture(t)
	f.classifier.idx = 42
	_, err = f.orchestrator().IdentifyText(context.Background(), "hello")
	if !errors.As(err, &infErr) || !errors.Is(err, label.ErrUnknownIndex) {
		t.Fatalf("IdentifyText() error = %v, want InferenceError(ErrUnknownIndex)", err)
	}
	if len(f.catalog.calls) != 0 {
		t.Fatalf("catalog called after inference failure")
	}
}

func TestIdentifyImageNoCatalogMatch(t *testing.T) {
	f := newFixture(t)
	got, err := f.orchestrator().IdentifyImage(context.Background(), pngBytes(t), "cover.png")
	if err != nil {
		t.Fatalf("IdentifyImage() unexpected error: %v", err)
	}
	want := ImageResponse{Title: "Hello", Artist: "Adele", CoverURL: ""}
	if got != want {
		t.Fatalf("IdentifyImage() = %+v, want %+v", got, want)
	}
	if f.lyrics.calls != 0 {
		t.Fatalf("lyrics called %d times for image modality", f.lyrics.calls)
	}
	if keys := jsonKeys(t, got); !reflect.DeepEqual(keys, []string{"artist", "cover_url", "title"}) {
		t.Fatalf("image keys = %q", keys)
	}
}

func TestIdentifyImageInvalid(t *testing.T) {
	f := newFixture(t)
	for _, data := range [][]byte{[]byte("this is not an image"), nil} {
		_, err := f.orchestrator().IdentifyImage(context.Background(), data, "x")
		var inErr *InputError
		if !errors.As(err, &inErr) {
			t.Fatalf("IdentifyImage(%q) error = %v, want InputError", data, err)
		}
	}
	if _, err := f.orchestrator().IdentifyImage(context.Background(), []byte("GIF89a junk"), "x"); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("IdentifyImage() error = %v, want ErrInvalidImage", err)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("classifier called %d times for invalid image", f.classifier.calls)
	}
}

func TestIdentifyAudio(t *testing.T) {
	f := newFixture(t)
	f.deps.Audio = fakeAudio{res: recognition.Result{Artist: "Adele", Title: "Hello"}, ok: true}
	f.catalog.results = map[string]catalog.Match{
		"Adele Hello": {Title: "Hello", Artist: "Adele", CoverURL: "https://img/25.jpg"},
	}
	f.lyrics.text = "Hello, it's me"

	got, err := f.orchestrator().IdentifyAudio(context.Background(), []byte("clip"), "audio.wav")
	if err != nil {
		t.Fatalf("IdentifyAudio() unexpected error: %v", err)
	}
	want := TrackResponse{Title: "Hello", Artist: "Adele", CoverURL: "https://img/25.jpg", Lyrics: "Hello, it's me"}
	if got != want {
		t.Fatalf("IdentifyAudio() = %+v, want %+v", got, want)
	}
}

func TestIdentifyAudioRecognitionFailed(t *testing.T) {
	f := newFixture(t)
	got, err := f.orchestrator().IdentifyAudio(context.Background(), []byte("clip"), "audio.wav")
	if err != nil {
		t.Fatalf("IdentifyAudio() unexpected error: %v", err)
	}
	if got != (TrackResponse{}) {
		t.Fatalf("IdentifyAudio() = %+v, want canned empty payload", got)
	}
	if keys := jsonKeys(t, got); !reflect.DeepEqual(keys, []string{"artist", "cover_url", "lyrics", "title"}) {
		t.Fatalf("audio keys = %q", keys)
	}
	if len(f.catalog.calls) != 0 || f.lyrics.calls != 0 {
		t.Fatalf("providers called after recognition failure")
	}

	f.deps.FailedTitle = "인식 실패"
	got, _ = f.orchestrator().IdentifyAudio(context.Background(), []byte("clip"), "audio.wav")
	if got.Title != "인식 실패" || got.Artist != "" {
		t.Fatalf("IdentifyAudio() = %+v, want configured failure title", got)
	}
}

func TestIdentifyAudioClipReportsRecognition(t *testing.T) {
	f := newFixture(t)
	resp, recognized, err := f.orchestrator().IdentifyAudioClip(context.Background(), []byte("clip"), "audio.wav")
	if err != nil || recognized {
		t.Fatalf("IdentifyAudioClip() = %+v, %v, %v, want unrecognized", resp, recognized, err)
	}
	if resp != (TrackResponse{}) {
		t.Fatalf("IdentifyAudioClip() = %+v, want canned empty payload", resp)
	}

	f.deps.Audio = fakeAudio{res: recognition.Result{Artist: "Adele", Title: "Hello"}, ok: true}
	resp, recognized, err = f.orchestrator().IdentifyAudioClip(context.Background(), []byte("clip"), "audio.wav")
	if err != nil || !recognized || resp.Title != "Hello" {
		t.Fatalf("IdentifyAudioClip() = %+v, %v, %v, want recognized", resp, recognized, err)
	}
}

func TestIdentifyAudioEmpty(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orchestrator().IdentifyAudio(context.Background(), nil, ""); !errors.Is(err, ErrNoFile) {
		t.Fatalf("IdentifyAudio(nil) error = %v, want ErrNoFile", err)
	}
}

func TestKeysStableWhenEveryProviderFails(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = errors.New("503 service unavailable")
	f.lyrics.err = errors.New("timeout")
	f.deps.Audio = fakeAudio{res: recognition.Result{Artist: "Adele", Title: "Hello"}, ok: true}
	o := f.orchestrator()

	text, err := o.IdentifyText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("IdentifyText() unexpected error: %v", err)
	}
	audio, err := o.IdentifyAudio(context.Background(), []byte("clip"), "a.wav")
	if err != nil {
		t.Fatalf("IdentifyAudio() unexpected error: %v", err)
	}
	img, err := o.IdentifyImage(context.Background(), pngBytes(t), "c.png")
	if err != nil {
		t.Fatalf("IdentifyImage() unexpected error: %v", err)
	}
	full := []string{"artist", "cover_url", "lyrics", "title"}
	for _, v := range []any{text, audio} {
		if keys := jsonKeys(t, v); !reflect.DeepEqual(keys, full) {
			t.Fatalf("keys = %q, want %q", keys, full)
		}
	}
	if keys := jsonKeys(t, img); !reflect.DeepEqual(keys, []string{"artist", "cover_url", "title"}) {
		t.Fatalf("image keys = %q", keys)
	}
	if text.Title != "Hello" || text.Artist != "Adele" || text.CoverURL != "" || text.Lyrics != "" {
		t.Fatalf("IdentifyText() = %+v", text)
	}
}

type failingRecognizer struct{}

func (failingRecognizer) Recognize(ctx context.Context, path string) (recognition.Result, error) {
	return recognition.Result{}, recognition.ErrNoMatch
}

type brokenTranscoder struct{}

func (brokenTranscoder) Transcode(ctx context.Context, in, out string) error {
	return errors.New("ffmpeg: invalid data found when processing input")
}

func TestIdentifyAudioLeavesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t)
	f.deps.Audio = recognition.NewPipeline(dir, brokenTranscoder{}, failingRecognizer{}, time.Second, discard)

	got, err := f.orchestrator().IdentifyAudio(context.Background(), []byte("noise"), "audio.wav")
	if err != nil || got != (TrackResponse{}) {
		t.Fatalf("IdentifyAudio() = %+v, %v", got, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d temporary artifacts left behind", len(entries))
	}
}
