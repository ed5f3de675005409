package sink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/denniswebb/mediacms/src/media"
)

func testVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestCreateMediaUploadsMultipart(t *testing.T) {
	var gotAuth, gotTitle, gotOwner, gotState, gotFile string
	var gotTags []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/media" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		gotTitle = r.FormValue("title")
		gotOwner = r.FormValue("owner")
		gotState = r.FormValue("state")
		gotTags = r.MultipartForm.Value["tags"]
		file, header, err := r.FormFile("media_file")
		if err != nil {
			t.Fatalf("missing media_file part: %v", err)
		}
		file.Close()
		gotFile = header.Filename
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"friendly_token":"abc123","url":"/view?m=abc123"}`))
	}))
	defer server.Close()

	s := NewHTTPSink(server.URL, "secret", server.Client())
	id, err := s.CreateMedia(context.Background(), media.CreateRequest{
		FilePath: testVideo(t),
		Title:    "Clip",
		Owner:    "alice",
		State:    media.StateUnlisted,
		Tags:     []string{"drone", "aerial"},
	})
	if err != nil {
		t.Fatalf("CreateMedia failed: %v", err)
	}

	if id != "abc123" {
		t.Errorf("expected media id abc123, got %s", id)
	}
	if gotAuth != "Token secret" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if gotTitle != "Clip" {
		t.Errorf("unexpected title %q", gotTitle)
	}
	if gotOwner != "alice" {
		t.Errorf("unexpected owner %q", gotOwner)
	}
	if gotState != "unlisted" {
		t.Errorf("unexpected state %q", gotState)
	}
	if len(gotTags) != 2 {
		t.Errorf("expected 2 tags, got %v", gotTags)
	}
	if gotFile != "clip.mp4" {
		t.Errorf("expected bare filename, got %q", gotFile)
	}
}

func TestCreateMediaRejectionIsValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"unsupported media type"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	s := NewHTTPSink(server.URL, "secret", server.Client())
	_, err := s.CreateMedia(context.Background(), media.CreateRequest{FilePath: testVideo(t), Title: "Clip"})

	var ve *media.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateMediaServerFailureIsStorageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewHTTPSink(server.URL, "secret", server.Client())
	_, err := s.CreateMedia(context.Background(), media.CreateRequest{FilePath: testVideo(t), Title: "Clip"})

	var se *media.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestCreateMediaUnreachableSinkIsStorageError(t *testing.T) {
	s := NewHTTPSink("http://127.0.0.1:1", "secret", nil)
	_, err := s.CreateMedia(context.Background(), media.CreateRequest{FilePath: testVideo(t), Title: "Clip"})

	var se *media.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestCreateMediaMissingFileIsStorageError(t *testing.T) {
	s := NewHTTPSink("http://127.0.0.1:1", "secret", nil)
	_, err := s.CreateMedia(context.Background(), media.CreateRequest{FilePath: "/does/not/exist.mp4"})

	var se *media.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
