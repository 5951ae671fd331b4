package recognition

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"
)

var discard = log.New(io.Discard, "", 0)

type fakeTranscoder struct {
	err    error
	panics bool
	input  string
}

func (f *fakeTranscoder) Transcode(ctx context.Context, in, out string) error {
	f.input = in
	if f.panics {
		panic("transcoder exploded")
	}
	if f.err != nil {
		// 模拟 ffmpeg 失败前留下的半成品
		_ = os.WriteFile(out, []byte("partial"), 0600)
		return f.err
	}
	return os.WriteFile(out, []byte("mp3"), 0600)
}

type fakeRecognizer struct {
	result  Result
	err     error
	gotPath string
	gotData string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, path string) (Result, error) {
	f.gotPath = path
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	f.gotData = string(data)
	return f.result, f.err
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir has %d leftover entries, first %q", len(entries), entries[0].Name())
	}
}

func TestRecognizeSuccess(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecognizer{result: Result{Artist: "Adele", Title: "Hello"}}
	p := NewPipeline(dir, &fakeTranscoder{}, rec, time.Second, discard)

	res, ok := p.Recognize(context.Background(), []byte("audio"))
	if !ok || res != (Result{Artist: "Adele", Title: "Hello"}) {
		t.Fatalf("Recognize() = %+v, %v", res, ok)
	}
	if rec.gotData != "mp3" {
		t.Fatalf("recognizer got %q, want transcoded clip", rec.gotData)
	}
	assertEmptyDir(t, dir)
}

func TestRecognizeProviderFailure(t *testing.T) {
	for name, err := range map[string]error{
		"no match": ErrNoMatch,
		"network":  errors.New("connection refused"),
	} {
		dir := t.TempDir()
		p := NewPipeline(dir, &fakeTranscoder{}, &fakeRecognizer{err: err}, time.Second, discard)
		if res, ok := p.Recognize(context.Background(), []byte("audio")); ok {
			t.Fatalf("%s: Recognize() = %+v, want no match", name, res)
		}
		assertEmptyDir(t, dir)
	}
}

func TestRecognizeTranscodeFailureSubmitsOriginal(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscoder{err: errors.New("ffmpeg: invalid data")}
	rec := &fakeRecognizer{err: ErrNoMatch}
	p := NewPipeline(dir, tr, rec, time.Second, discard)

	if _, ok := p.Recognize(context.Background(), []byte("not audio")); ok {
		t.Fatalf("Recognize() ok = true")
	}
	if rec.gotPath != tr.input || rec.gotData != "not audio" {
		t.Fatalf("recognizer got %q (%q), want original clip %q", rec.gotPath, rec.gotData, tr.input)
	}
	assertEmptyDir(t, dir)
}

func TestRecognizeCleansUpOnPanic(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(dir, &fakeTranscoder{panics: true}, &fakeRecognizer{}, time.Second, discard)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		p.Recognize(context.Background(), []byte("audio"))
	}()
	assertEmptyDir(t, dir)
}

func TestRecognizeWorkspaceFailure(t *testing.T) {
	p := NewPipeline("/nonexistent/trackid/tmp", &fakeTranscoder{}, &fakeRecognizer{}, time.Second, discard)
	if _, ok := p.Recognize(context.Background(), []byte("audio")); ok {
		t.Fatalf("Recognize() ok = true without a workspace")
	}
}

// wavClip 生成 8kHz 16bit 单声道、指定秒数的静音 WAV
func wavClip(seconds int) []byte {
	dataLen := 8000 * 2 * seconds
	buf := make([]byte, 44+dataLen)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], 8000)
	binary.LittleEndian.PutUint32(buf[28:], 16000)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))
	return buf
}

func TestSniffClip(t *testing.T) {
	info := sniffClip(wavClip(2))
	if info.ext != ".wav" || info.duration != 2*time.Second {
		t.Fatalf("sniffClip(wav) = %+v", info)
	}
	cases := []struct {
		data []byte
		want string
	}{
		{data: []byte("ID3\x04\x00rest"), want: ".mp3"},
		{data: []byte("OggS\x00\x02"), want: ".ogg"},
		{data: []byte("fLaC\x00\x00"), want: ".flac"},
		{data: []byte("\x00\x00\x00\x20ftypM4A \x00\x00"), want: ".m4a"},
		{data: []byte("hello"), want: ".bin"},
	}
	for _, tc := range cases {
		if got := sniffClip(tc.data).ext; got != tc.want {
			t.Fatalf("sniffClip(%q) = %q, want %q", tc.data, got, tc.want)
		}
	}
}
