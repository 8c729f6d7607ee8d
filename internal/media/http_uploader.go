package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type logger interface {
	Printf(format string, v ...interface{})
}

// HTTPUploader implementa Uploader contra un blob store HTTP (estilo Cloudinary).
type HTTPUploader struct {
	uploadURL string
	apiKey    string
	client    *http.Client
	logger    logger
}

// NewHTTPUploader construye un cliente con timeout acotado; una subida lenta
// no puede colgar el request de envío indefinidamente.
func NewHTTPUploader(uploadURL, apiKey string, timeout time.Duration, log any) *HTTPUploader {
	l, _ := log.(logger)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPUploader{
		uploadURL: strings.TrimRight(uploadURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{Timeout: timeout},
		logger:    l,
	}
}

type uploadResponse struct {
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPUploader) Upload(ctx context.Context, up Upload) (Ref, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", up.FileName)
	if err != nil {
		return Ref{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, up.Data); err != nil {
		return Ref{}, fmt.Errorf("copy upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Ref{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return Ref{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Ref{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ref{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Printf("media upload error status %d: %s", resp.StatusCode, string(respBody))
		}
		return Ref{}, fmt.Errorf("media upload http error: status=%d", resp.StatusCode)
	}

	var ur uploadResponse
	if err := json.Unmarshal(respBody, &ur); err != nil {
		return Ref{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if ur.Error != nil {
		return Ref{}, fmt.Errorf("media upload api error: %s", ur.Error.Message)
	}
	if ur.SecureURL == "" {
		return Ref{}, fmt.Errorf("media upload empty response")
	}

	kind := ur.ResourceType
	if kind == "" {
		kind = kindFromContentType(up.ContentType)
	}
	return Ref{URL: ur.SecureURL, Kind: kind}, nil
}

func kindFromContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return "raw"
	}
}
