package httputil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownload(t *testing.T) {
	body := strings.Repeat("x", 3*chunkSize+17)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	defer srv.Close()

	parent := t.TempDir()
	var seen string
	err := Download(context.Background(), srv.Client(), srv.URL+"/files/pkg-1.0.0.tar.gz", func(path string) error {
		seen = path
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if string(data) != body {
			t.Errorf("downloaded %d bytes, want %d", len(data), len(body))
		}
		return nil
	}, WithTempDir(parent))
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if filepath.Base(seen) != "pkg-1.0.0.tar.gz" {
		t.Errorf("file name = %q", filepath.Base(seen))
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Error("downloaded file should be removed")
	}
	if entries, _ := os.ReadDir(parent); len(entries) != 0 {
		t.Errorf("scope not removed: %d entries left", len(entries))
	}
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	parent := t.TempDir()
	called := false
	err := Download(context.Background(), srv.Client(), srv.URL+"/missing.whl", func(string) error {
		called = true
		return nil
	}, WithTempDir(parent))

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound || !strings.HasSuffix(se.URL, "/missing.whl") {
		t.Errorf("StatusError = %+v", se)
	}
	if se.Temporary() {
		t.Error("404 should not be temporary")
	}
	if called {
		t.Error("callback should not run on error")
	}
	if entries, _ := os.ReadDir(parent); len(entries) != 0 {
		t.Error("scope not removed after failure")
	}
}

func TestDownloadCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data")
	}))
	defer srv.Close()

	want := errors.New("boom")
	parent := t.TempDir()
	err := Download(context.Background(), srv.Client(), srv.URL+"/a.zip", func(string) error { return want }, WithTempDir(parent))
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if entries, _ := os.ReadDir(parent); len(entries) != 0 {
		t.Error("scope not removed after callback error")
	}
}

func TestDownloadCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parent := t.TempDir()
	err := Download(ctx, srv.Client(), srv.URL+"/a.zip", func(string) error { return nil }, WithTempDir(parent))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if entries, _ := os.ReadDir(parent); len(entries) != 0 {
		t.Error("scope not removed after cancellation")
	}
}

func TestDownloadProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "0123456789")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	var size int64
	err := Download(context.Background(), srv.Client(), srv.URL+"/a.whl", func(string) error { return nil },
		WithTempDir(t.TempDir()),
		WithProgress(func(n int64) io.Writer {
			size = n
			return &buf
		}))
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "0123456789" {
		t.Errorf("progress saw %q", buf.String())
	}
	if size != 10 {
		t.Errorf("size = %d, want 10", size)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://files.example.org/packages/ab/cd/pkg-1.0-py3-none-any.whl", "pkg-1.0-py3-none-any.whl"},
		{"https://files.example.org/pkg-1.0.tar.gz?sig=abc", "pkg-1.0.tar.gz"},
		{"https://files.example.org/", "download"},
		{"https://files.example.org/.hidden", "download.hidden"},
	}
	for _, tt := range tests {
		if got := fileName(tt.url); got != tt.want {
			t.Errorf("fileName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
