package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// MaxMediaBytes is the upload size cap enforced before any network I/O.
	MaxMediaBytes = 25 * 1024 * 1024

	// MediaTypeImage classifies picture attachments.
	MediaTypeImage = "image"
	// MediaTypeVideo classifies video attachments.
	MediaTypeVideo = "video"
	// MediaTypeAudio classifies audio attachments.
	MediaTypeAudio = "audio"
	// MediaTypeFile classifies everything else.
	MediaTypeFile = "file"
)

// ErrMediaTooLarge is returned for uploads over MaxMediaBytes.
var ErrMediaTooLarge = errors.New("backend: media exceeds size limit")

// blockedExtensions are rejected outright; the backend refuses them too,
// but rejecting locally gives the user an immediate answer.
var blockedExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".scr": true,
	".msi": true,
	".js":  true,
	".vbs": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".heic": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".ogg": true, ".opus": true, ".m4a": true, ".wav": true,
}

// ValidateMedia checks an attachment against local policy before upload.
func ValidateMedia(fileName string, size int64) error {
	if fileName == "" {
		return errors.New("file name is required")
	}
	if size <= 0 {
		return errors.New("file is empty")
	}
	if size > MaxMediaBytes {
		return ErrMediaTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if blockedExtensions[ext] {
		return fmt.Errorf("file type %q is not allowed", ext)
	}
	return nil
}

// ClassifyMedia maps a file name to its display media type.
func ClassifyMedia(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case imageExtensions[ext]:
		return MediaTypeImage
	case videoExtensions[ext]:
		return MediaTypeVideo
	case audioExtensions[ext]:
		return MediaTypeAudio
	default:
		return MediaTypeFile
	}
}

// UploadMedia streams an attachment to media storage and returns its URL.
func (c *Client) UploadMedia(ctx context.Context, r io.Reader, fileName, userID, chatID string) (string, error) {
	if r == nil {
		return "", errors.New("reader is required")
	}
	if fileName == "" {
		return "", errors.New("file name is required")
	}
	if userID == "" {
		return "", errors.New("user ID is required")
	}
	if chatID == "" {
		return "", errors.New("chat ID is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy media body: %w", err)
	}
	if err := writer.WriteField("user_id", userID); err != nil {
		return "", fmt.Errorf("write user_id field: %w", err)
	}
	if err := writer.WriteField("chat_id", chatID); err != nil {
		return "", fmt.Errorf("write chat_id field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/media", &buf)
	if err != nil {
		return "", fmt.Errorf("build media upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeaders(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, http.MethodPost, "/v1/media"); err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode media upload response: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("media upload returned no URL")
	}
	return out.URL, nil
}
