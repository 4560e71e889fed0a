package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewFileStore_CreatesDirectory проверяет создание каталога загрузок.
func TestNewFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	if fs.Dir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, fs.Dir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("каталог не создан: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является каталогом")
	}
}

// TestFileStore_SaveAndDelete проверяет сохранение и идемпотентное удаление.
func TestFileStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	ctx := context.Background()

	content := "тестовые байты фотографии"
	locator, err := fs.Save(ctx, strings.NewReader(content), "Photo.JPG", "image/jpeg")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if !strings.HasPrefix(locator, LocalPrefix+"media-") {
		t.Errorf("локатор должен начинаться с %smedia-: %s", LocalPrefix, locator)
	}
	if !strings.HasSuffix(locator, ".jpg") {
		t.Errorf("локатор должен сохранять расширение в нижнем регистре: %s", locator)
	}

	fullPath := filepath.Join(dir, strings.TrimPrefix(locator, LocalPrefix))
	data, err := os.ReadFile(fullPath)
	if err != nil {
		t.Fatalf("файл не найден на диске: %v", err)
	}
	if string(data) != content {
		t.Errorf("содержимое: ожидалось %q, получено %q", content, data)
	}

	// Temp файл не должен оставаться
	if _, err := os.Stat(fullPath + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp файл не удалён после rename")
	}

	if err := fs.Delete(ctx, locator); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if _, err := os.Stat(fullPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("файл не удалён")
	}

	// Повторное удаление — не ошибка
	if err := fs.Delete(ctx, locator); err != nil {
		t.Errorf("повторное удаление вернуло ошибку: %v", err)
	}
}

// TestFileStore_UniqueNames проверяет уникальность имён при одинаковом исходном имени.
func TestFileStore_UniqueNames(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	ctx := context.Background()

	a, err := fs.Save(ctx, strings.NewReader("a"), "same.png", "image/png")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	b, err := fs.Save(ctx, strings.NewReader("b"), "same.png", "image/png")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	if a == b {
		t.Errorf("локаторы совпадают: %s", a)
	}
}

// TestFileStore_DeleteRejectsTraversal проверяет отклонение опасных локаторов.
func TestFileStore_DeleteRejectsTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	for _, locator := range []string{"", "uploads/", "uploads/../secret", "uploads/a/b.jpg", "uploads/.."} {
		if err := fs.Delete(context.Background(), locator); err == nil {
			t.Errorf("Delete(%q) должен вернуть ошибку", locator)
		}
	}
}

func TestSafeExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", ".jpg"},
		{"clip.MP4", ".mp4"},
		{"noext", ""},
		{"evil.j$p", ""},
		{"archive.verylongextension", ""},
		{".", ""},
	}
	for _, tt := range tests {
		if got := safeExt(tt.in); got != tt.want {
			t.Errorf("safeExt(%q) = %q, ожидается %q", tt.in, got, tt.want)
		}
	}
}

func TestS3Store_KeyFromLocator(t *testing.T) {
	s := &S3Store{bucket: "media", publicURL: "https://cdn.example/media"}

	key, err := s.keyFromLocator("https://cdn.example/media/media-1-abcd.jpg")
	if err != nil || key != "media-1-abcd.jpg" {
		t.Errorf("keyFromLocator() = %q, %v", key, err)
	}
	if _, err := s.keyFromLocator("uploads/media-1-abcd.jpg"); err == nil {
		t.Error("чужой локатор должен отклоняться")
	}
}

func TestFileStore_CheckReady(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	if status, msg := fs.CheckReady(); status != "ok" {
		t.Errorf("CheckReady() = %s (%s), ожидается ok", status, msg)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if status, _ := fs.CheckReady(); status != "fail" {
		t.Errorf("CheckReady() после удаления каталога = %s, ожидается fail", status)
	}
}
