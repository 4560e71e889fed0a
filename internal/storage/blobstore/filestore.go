package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalPrefix — префикс локаторов FileStore; совпадает с URL-путём раздачи файлов.
const LocalPrefix = "uploads/"

// FileStore — хранение медиафайлов в локальном каталоге.
type FileStore struct {
	// dir — каталог загрузок (PI_UPLOAD_DIR)
	dir string
}

// NewFileStore создаёт FileStore. Каталог создаётся, если не существует.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог загрузок %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir возвращает каталог загрузок.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Save записывает данные на диск и возвращает локатор uploads/<name>.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Save(ctx context.Context, r io.Reader, filename, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := generateName(filename)
	fullPath := filepath.Join(fs.dir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return LocalPrefix + name, nil
}

// Delete удаляет файл по локатору.
// Возвращает nil, если файл уже не существует.
func (fs *FileStore) Delete(_ context.Context, locator string) error {
	name, err := fs.nameFromLocator(locator)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(fs.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// nameFromLocator извлекает имя файла из локатора.
// Локаторы с вложенными путями и выходом за пределы каталога отклоняются.
func (fs *FileStore) nameFromLocator(locator string) (string, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(locator, "/"), LocalPrefix)
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.Contains(name, `\`) {
		return "", fmt.Errorf("некорректный локатор %q", locator)
	}
	return name, nil
}

// CheckReady проверяет, что каталог загрузок существует и является каталогом.
func (fs *FileStore) CheckReady() (status string, message string) {
	info, err := os.Stat(fs.dir)
	if err != nil {
		return "fail", fmt.Sprintf("каталог загрузок недоступен: %v", err)
	}
	if !info.IsDir() {
		return "fail", fmt.Sprintf("%s не является каталогом", fs.dir)
	}
	return "ok", "каталог доступен"
}
