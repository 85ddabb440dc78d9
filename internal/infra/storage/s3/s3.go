package s3

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Хранилище обложек книг поверх S3/MinIO. Ключ — sha256 содержимого:
// одна и та же картинка не хранится дважды, URL стабилен.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
	PublicURL string // базовый URL для отдачи, например https://cdn.example.com/covers
}

type Storage struct {
	cl        *minio.Client
	bucket    string
	publicURL string
	logger    *log.Logger
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &Storage{cl: cl, bucket: cfg.Bucket, publicURL: publicURL, logger: logger}, nil
}

// Put загружает обложку и возвращает публичный URL вида
// {publicURL}/covers/sha256/<hex><ext>.
func (s *Storage) Put(ctx context.Context, r io.Reader, size int64, filename, mime string) (string, error) {
	h := sha256.New()
	pr, pw := io.Pipe()
	mw := io.MultiWriter(h, pw)

	// копируем в пайп и считаем sha параллельно
	go func() {
		_, copyErr := io.Copy(mw, r)
		pw.CloseWithError(copyErr)
	}()

	tmpKey := "covers/tmp/" + sanitize(filename)
	info, err := s.cl.PutObject(ctx, s.bucket, tmpKey, pr, size, minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		s.logger.Printf("put tmp %q failed: %v", tmpKey, err)
		return "", err
	}

	finalKey := fmt.Sprintf("covers/sha256/%x%s", h.Sum(nil), strings.ToLower(path.Ext(filename)))
	src := minio.CopySrcOptions{Bucket: s.bucket, Object: tmpKey}
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: finalKey}
	if _, err := s.cl.CopyObject(ctx, dst, src); err != nil {
		_ = s.cl.RemoveObject(ctx, s.bucket, tmpKey, minio.RemoveObjectOptions{})
		s.logger.Printf("copy %q -> %q failed: %v", tmpKey, finalKey, err)
		return "", err
	}
	_ = s.cl.RemoveObject(ctx, s.bucket, tmpKey, minio.RemoveObjectOptions{})

	s.logger.Printf("put ok key=%q size=%d", finalKey, info.Size)
	return s.publicURL + "/" + finalKey, nil
}

// Delete принимает публичный URL, выданный Put.
func (s *Storage) Delete(ctx context.Context, coverURL string) error {
	key := strings.TrimPrefix(coverURL, s.publicURL+"/")
	if key == coverURL || key == "" {
		// чужой URL (например, внешний хостинг) — удалять нечего
		return nil
	}
	return s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *Storage) Ping(ctx context.Context) error {
	found, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !found {
		// endpoint жив, но бакета нет — readiness обязан это поймать
		return fmt.Errorf("bucket %q not found", s.bucket)
	}
	return nil
}

func sanitize(name string) string {
	u := url.PathEscape(name)
	return strings.ReplaceAll(u, "%2F", "_")
}
