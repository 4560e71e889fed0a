package model

import (
	"strings"
	"time"
)

// Profile — анкета пользователя.
// Хранится в таблице profiles.
type Profile struct {
	// ID — UUID анкеты
	ID string
	// CreatedAt — время создания (колонка date)
	CreatedAt time.Time
	// UserName — имя пользователя, отправившего анкету
	UserName string
	// ChatID — идентификатор чата (опционально)
	ChatID *int64
	// Структурированные поля, заполняются ИИ-обогащением или администратором
	Name         *string
	Age          *int
	Height       *int
	Weight       *int
	Measurements *string
	// About — описание; при создании равно RawText
	About *string
	// Notes — заметки администратора или диагностика обогащения
	Notes *string
	// RawText — исходный текст анкеты, после создания не меняется
	RawText string
	// Media — прикреплённые медиафайлы в порядке загрузки
	Media []MediaItem
}

// MediaKind — тип медиафайла.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// KindFromContentType определяет тип медиафайла по заявленному MIME-типу.
// Содержимое файла не проверяется.
func KindFromContentType(contentType string) MediaKind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image") {
		return MediaImage
	}
	return MediaVideo
}

// MediaItem — медиафайл анкеты.
// Хранится в таблице media_items.
type MediaItem struct {
	// ID — UUID записи
	ID string
	// ProfileID — UUID анкеты-владельца
	ProfileID string
	// Kind — image или video
	Kind MediaKind
	// Locator — ссылка на объект в хранилище (uploads/<name> или URL)
	Locator string
	// Position — порядковый номер файла в исходной загрузке
	Position int
}

// Enrichment — структурированные поля, извлечённые из текста анкеты.
// Любое поле может отсутствовать.
type Enrichment struct {
	Name         *string
	Age          *int
	Height       *int
	Weight       *int
	Measurements *string
	About        *string
	Notes        *string
}

// ProfileEdit — полная замена редактируемых полей анкеты администратором.
// Отсутствующее поле записывается как NULL.
type ProfileEdit struct {
	Name         *string
	Age          *int `validate:"omitempty,gte=0,lte=1000"`
	Height       *int `validate:"omitempty,gte=0,lte=1000"`
	Weight       *int `validate:"omitempty,gte=0,lte=1000"`
	Measurements *string
	About        *string
	Notes        *string
}
