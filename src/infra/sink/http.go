package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/denniswebb/mediacms/src/media"
)

// Ensure HTTPSink implements media.Sink
var _ media.Sink = (*HTTPSink)(nil)

// HTTPSink uploads files to a MediaCMS instance over its REST API.
type HTTPSink struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPSink creates a sink for the CMS at url authenticating with token.
// The client's timeout bounds the whole upload, so it should scale with the
// largest file the watcher accepts.
func NewHTTPSink(url, token string, client *http.Client) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSink{
		url:    strings.TrimSuffix(url, "/"),
		token:  token,
		client: client,
	}
}

// CreateMedia uploads the file and its metadata as one multipart request and
// returns the token the CMS assigned to the new media item.
func (s *HTTPSink) CreateMedia(ctx context.Context, req media.CreateRequest) (media.ID, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return "", &media.StorageError{Err: fmt.Errorf("failed to open file for upload: %w", err)}
	}
	defer file.Close()

	// The body is piped so multi-gigabyte files never sit in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadBody(writer, file, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.url+"/api/v1/media", pr)
	if err != nil {
		return "", &media.StorageError{Err: err}
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Token "+s.token)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", &media.StorageError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &media.StorageError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The CMS rejected the request itself; retrying the same file will
		// hit the same rejection.
		return "", &media.ValidationError{Reason: fmt.Sprintf("%s: %s", resp.Status, summarize(body))}
	default:
		return "", &media.StorageError{Err: fmt.Errorf("upload failed: %s: %s", resp.Status, summarize(body))}
	}

	var result struct {
		FriendlyToken string `json:"friendly_token"`
		URL           string `json:"url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &media.StorageError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if result.FriendlyToken == "" {
		return "", &media.StorageError{Err: fmt.Errorf("response carried no media token")}
	}

	slog.Debug("HTTPSink.CreateMedia: uploaded", "path", req.FilePath, "token", result.FriendlyToken)
	return media.ID(result.FriendlyToken), nil
}

func writeUploadBody(writer *multipart.Writer, file *os.File, req media.CreateRequest) error {
	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"owner":       req.Owner,
	}
	if req.State != "" {
		fields["state"] = string(req.State)
	}
	if req.Channel != "" {
		fields["channel"] = req.Channel
	}
	if req.AllowDownload != nil {
		fields["allow_download"] = strconv.FormatBool(*req.AllowDownload)
	}
	if req.IsReviewed != nil {
		fields["is_reviewed"] = strconv.FormatBool(*req.IsReviewed)
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}
	for _, category := range req.Categories {
		if err := writer.WriteField("category", category); err != nil {
			return err
		}
	}
	for _, tag := range req.Tags {
		if err := writer.WriteField("tags", tag); err != nil {
			return err
		}
	}

	part, err := writer.CreateFormFile("media_file", filepath.Base(file.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return writer.Close()
}

// summarize trims a response body down to a single log-friendly line.
func summarize(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return strings.ReplaceAll(text, "\n", " ")
}
