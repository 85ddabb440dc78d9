package domain

import (
	"context"
	"io"
)

// Хранилище обложек (S3/MinIO). Возвращает публичный URL,
// который кладётся в books.image_url.
type CoverStorage interface {
	Put(ctx context.Context, r io.Reader, size int64, filename, mime string) (url string, err error)
	Delete(ctx context.Context, url string) error
	Ping(ctx context.Context) error
}
