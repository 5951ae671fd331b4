package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("mp3-bytes"), 0600); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestAudDClientRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("api_token") != "secret" || r.FormValue("return") != "spotify" {
			http.Error(w, "bad fields", http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "mp3-bytes" {
			http.Error(w, "wrong file", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"status":"success","result":{"artist":"Adele","title":"Hello","album":"25"}}`)
	}))
	defer srv.Close()

	c := NewAudDClient(srv.URL, "secret", time.Second)
	res, err := c.Recognize(context.Background(), writeClip(t))
	if err != nil {
		t.Fatalf("Recognize() unexpected error: %v", err)
	}
	if res != (Result{Artist: "Adele", Title: "Hello"}) {
		t.Fatalf("Recognize() = %+v", res)
	}
}

func TestAudDClientNoMatch(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"null result": {status: http.StatusOK, body: `{"status":"success","result":null}`},
		"empty body":  {status: http.StatusOK, body: ""},
		"api error":   {status: http.StatusOK, body: `{"status":"error","error":{"error_code":901,"error_message":"limit reached"}}`},
		"server down": {status: http.StatusBadGateway, body: "bad gateway"},
	}
	for name, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, tc.body)
		}))
		c := NewAudDClient(srv.URL, "secret", time.Second)
		_, err := c.Recognize(context.Background(), writeClip(t))
		srv.Close()
		if !errors.Is(err, ErrNoMatch) {
			t.Fatalf("%s: Recognize() error = %v, want ErrNoMatch", name, err)
		}
	}
}
