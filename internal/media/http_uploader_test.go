package media

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPUploader_Upload(t *testing.T) {
	var gotAuth, gotFileName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFileName = header.Filename
		json.NewEncoder(w).Encode(map[string]string{
			"secure_url":    "https://cdn.example.com/pic.jpg",
			"resource_type": "image",
		})
	}))
	defer server.Close()

	uploader := NewHTTPUploader(server.URL, "api-key", time.Second, nil)
	ref, err := uploader.Upload(context.Background(), Upload{
		FileName:    "pic.jpg",
		ContentType: "image/jpeg",
		Data:        strings.NewReader("jpegbytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref.URL != "https://cdn.example.com/pic.jpg" || ref.Kind != "image" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if gotAuth != "Bearer api-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotFileName != "pic.jpg" {
		t.Fatalf("unexpected file name %q", gotFileName)
	}
}

func TestHTTPUploader_KindFallsBackToContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.example.com/clip.mp4"})
	}))
	defer server.Close()

	uploader := NewHTTPUploader(server.URL, "api-key", time.Second, nil)
	ref, err := uploader.Upload(context.Background(), Upload{
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		Data:        strings.NewReader("mp4bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref.Kind != "video" {
		t.Fatalf("expected video kind, got %q", ref.Kind)
	}
}

func TestHTTPUploader_Errors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		uploader := NewHTTPUploader(server.URL, "api-key", time.Second, nil)
		if _, err := uploader.Upload(context.Background(), Upload{FileName: "x", Data: strings.NewReader("x")}); err == nil {
			t.Fatalf("expected error on 500 response")
		}
	})

	t.Run("api error payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "invalid signature"}})
		}))
		defer server.Close()

		uploader := NewHTTPUploader(server.URL, "api-key", time.Second, nil)
		_, err := uploader.Upload(context.Background(), Upload{FileName: "x", Data: strings.NewReader("x")})
		if err == nil || !strings.Contains(err.Error(), "invalid signature") {
			t.Fatalf("expected api error, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.example.com/x"})
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		uploader := NewHTTPUploader(server.URL, "api-key", time.Second, nil)
		_, err := uploader.Upload(ctx, Upload{FileName: "x", Data: strings.NewReader("x")})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestDisabledUploader(t *testing.T) {
	uploader := NewDisabledUploader("no upload url configured")
	if _, err := uploader.Upload(context.Background(), Upload{FileName: "x", Data: strings.NewReader("x")}); err == nil {
		t.Fatalf("expected disabled uploader to fail")
	}
}
