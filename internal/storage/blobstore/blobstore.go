// Пакет blobstore — хранение байтов медиафайлов вне реляционной БД.
// Локальный диск (FileStore) или S3-совместимое хранилище (S3Store).
package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore — хранилище медиафайлов.
// Save возвращает локатор, по которому объект позже удаляется и отдаётся клиенту.
type BlobStore interface {
	Save(ctx context.Context, r io.Reader, filename, contentType string) (locator string, err error)
	Delete(ctx context.Context, locator string) error
}

// generateName генерирует имя объекта.
// Формат: media-{unix_millis}-{uuid8}{ext}
// Пример: media-1760000000000-a1b2c3d4.jpg
func generateName(originalFilename string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	uid := uuid.New().String()[:8] // Короткий UUID для уникальности
	return "media-" + ts + "-" + uid + safeExt(originalFilename)
}

// safeExt возвращает расширение исходного имени в нижнем регистре,
// только из латиницы и цифр. Длинные и подозрительные расширения отбрасываются.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
