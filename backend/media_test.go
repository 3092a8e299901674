package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestValidateMediaPolicy(t *testing.T) {
	if err := ValidateMedia("photo.jpg", 1024); err != nil {
		t.Fatalf("expected photo.jpg to pass, got %v", err)
	}
	if err := ValidateMedia("notes.pdf", MaxMediaBytes); err != nil {
		t.Fatalf("expected file exactly at the limit to pass, got %v", err)
	}

	if err := ValidateMedia("huge.mp4", MaxMediaBytes+1); !errors.Is(err, ErrMediaTooLarge) {
		t.Fatalf("expected ErrMediaTooLarge, got %v", err)
	}
	if err := ValidateMedia("setup.exe", 1024); err == nil {
		t.Fatalf("expected blocked extension to fail")
	}
	if err := ValidateMedia("Installer.EXE", 1024); err == nil {
		t.Fatalf("expected blocked extension check to be case-insensitive")
	}
	if err := ValidateMedia("empty.png", 0); err == nil {
		t.Fatalf("expected empty file to fail")
	}
}

func TestClassifyMedia(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":    MediaTypeImage,
		"clip.mp4":     MediaTypeVideo,
		"note.opus":    MediaTypeAudio,
		"report.pdf":   MediaTypeFile,
		"archive":      MediaTypeFile,
		"scan.heic":    MediaTypeImage,
		"meeting.webm": MediaTypeVideo,
	}
	for name, want := range cases {
		if got := ClassifyMedia(name); got != want {
			t.Fatalf("ClassifyMedia(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestUploadMediaPostsMultipartAndReturnsURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/media" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		if got := r.FormValue("user_id"); got != "alice" {
			t.Errorf("expected user_id alice, got %q", got)
		}
		if got := r.FormValue("chat_id"); got != "chat-1" {
			t.Errorf("expected chat_id chat-1, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("read form file: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "photo.jpg" {
				t.Errorf("expected base filename photo.jpg, got %q", header.Filename)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://media.example/photo.jpg"})
	}))

	url, err := client.UploadMedia(context.Background(), strings.NewReader("jpeg-bytes"), "/tmp/photo.jpg", "alice", "chat-1")
	if err != nil {
		t.Fatalf("UploadMedia failed: %v", err)
	}
	if url != "https://media.example/photo.jpg" {
		t.Fatalf("unexpected media URL %q", url)
	}
}
