package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/profile-intake/internal/domain/model"
)

// MediaRepository — интерфейс доступа к таблице media_items.
type MediaRepository interface {
	// Create добавляет медиафайл к анкете.
	Create(ctx context.Context, m *model.MediaItem) error
	// ListByProfile возвращает медиафайлы анкеты в порядке загрузки.
	ListByProfile(ctx context.Context, profileID string) ([]model.MediaItem, error)
	// ListByProfileIDs возвращает медиафайлы нескольких анкет, сгруппированные по profile_id.
	ListByProfileIDs(ctx context.Context, profileIDs []string) (map[string][]model.MediaItem, error)
}

// mediaRepo — реализация MediaRepository.
type mediaRepo struct {
	db DBTX
}

// NewMediaRepository создаёт репозиторий медиафайлов.
func NewMediaRepository(db DBTX) MediaRepository {
	return &mediaRepo{db: db}
}

func (r *mediaRepo) Create(ctx context.Context, m *model.MediaItem) error {
	query := `
		INSERT INTO media_items (id, profile_id, type, url, position)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, m.ID, m.ProfileID, string(m.Kind), m.Locator, m.Position)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: медиафайл %s", ErrConflict, m.ID)
		}
		return fmt.Errorf("ошибка создания медиафайла: %w", err)
	}
	return nil
}

func (r *mediaRepo) ListByProfile(ctx context.Context, profileID string) ([]model.MediaItem, error) {
	grouped, err := r.ListByProfileIDs(ctx, []string{profileID})
	if err != nil {
		return nil, err
	}
	return grouped[profileID], nil
}

func (r *mediaRepo) ListByProfileIDs(ctx context.Context, profileIDs []string) (map[string][]model.MediaItem, error) {
	result := make(map[string][]model.MediaItem, len(profileIDs))
	if len(profileIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, profile_id, type, url, position
		FROM media_items
		WHERE profile_id = ANY($1::uuid[])
		ORDER BY profile_id, position, id`

	rows, err := r.db.Query(ctx, query, profileIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения медиафайлов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    model.MediaItem
			kind string
		)
		if err := rows.Scan(&m.ID, &m.ProfileID, &kind, &m.Locator, &m.Position); err != nil {
			return nil, fmt.Errorf("ошибка сканирования медиафайла: %w", err)
		}
		m.Kind = model.MediaKind(kind)
		result[m.ProfileID] = append(result[m.ProfileID], m)
	}
	return result, rows.Err()
}
