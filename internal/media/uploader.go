package media

import (
	"context"
	"errors"
	"io"
)

// Upload describe un archivo pendiente de subir al blob store.
type Upload struct {
	FileName    string
	ContentType string
	Data        io.Reader
}

// Ref es la referencia que devuelve el blob store tras una subida.
type Ref struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// Uploader define la interfaz hacia el almacenamiento externo de media.
type Uploader interface {
	Upload(ctx context.Context, up Upload) (Ref, error)
}

type disabledUploader struct {
	reason string
}

func NewDisabledUploader(reason string) Uploader {
	return &disabledUploader{reason: reason}
}

func (u *disabledUploader) Upload(_ context.Context, _ Upload) (Ref, error) {
	if u.reason == "" {
		return Ref{}, errors.New("media uploader disabled")
	}
	return Ref{}, errors.New(u.reason)
}
