package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minPartSize — минимальный размер части multipart-загрузки S3.
// Объём заранее неизвестен, поэтому буфер ограничиваем минимумом.
const minPartSize = 5 << 20

// S3Config — параметры подключения к S3-совместимому хранилищу.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL — базовый URL объектов бакета, без завершающего слеша
	PublicURL string
}

// S3Store — хранение медиафайлов в бакете S3 (MinIO, AWS S3 и совместимые).
type S3Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewS3Store создаёт клиента и проверяет существование бакета.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания S3-клиента: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки бакета %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("бакет %s не существует", cfg.Bucket)
	}

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Save загружает объект в бакет и возвращает его публичный URL.
func (s *S3Store) Save(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	key := generateName(filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    minPartSize,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки объекта %s: %w", key, err)
	}

	return s.publicURL + "/" + key, nil
}

// Delete удаляет объект по локатору. Отсутствующий объект не считается ошибкой.
func (s *S3Store) Delete(ctx context.Context, locator string) error {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// keyFromLocator извлекает ключ объекта из публичного URL.
func (s *S3Store) keyFromLocator(locator string) (string, error) {
	key, ok := strings.CutPrefix(locator, s.publicURL+"/")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", fmt.Errorf("локатор %q не принадлежит бакету %s", locator, s.bucket)
	}
	return key, nil
}

// CheckReady проверяет доступность бакета.
// Недоступность S3 не мешает чтению анкет, поэтому статус — degraded.
func (s *S3Store) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return "degraded", fmt.Sprintf("S3 недоступен: %v", err)
	}
	return "ok", "бакет доступен"
}
