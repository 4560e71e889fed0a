package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/profile-intake/internal/domain/model"
)

// ProfileRepository — интерфейс CRUD для таблицы profiles.
type ProfileRepository interface {
	// Create создаёт анкету. ID задаётся вызывающим, date — базой.
	Create(ctx context.Context, p *model.Profile) error
	// GetByID возвращает анкету по UUID (без медиафайлов).
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// List возвращает все анкеты, новые первыми (без медиафайлов).
	List(ctx context.Context) ([]*model.Profile, error)
	// Update полностью заменяет редактируемые поля и возвращает обновлённую анкету.
	Update(ctx context.Context, id string, edit model.ProfileEdit) (*model.Profile, error)
	// ApplyEnrichment записывает результат обогащения (все семь полей).
	ApplyEnrichment(ctx context.Context, id string, e model.Enrichment) error
	// SetNotes перезаписывает только notes.
	SetNotes(ctx context.Context, id, notes string) error
	// Delete удаляет анкету; медиафайлы удаляются каскадно.
	Delete(ctx context.Context, id string) error
}

// profileRepo — реализация ProfileRepository.
type profileRepo struct {
	db DBTX
}

// NewProfileRepository создаёт репозиторий анкет.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id, date, user_name, chat_id, name, age, height, weight,
	measurements, about, notes, raw_text`

// scanProfile сканирует строку в model.Profile (порядок колонок — profileColumns).
func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UserName, &p.ChatID,
		&p.Name, &p.Age, &p.Height, &p.Weight,
		&p.Measurements, &p.About, &p.Notes, &p.RawText,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, user_name, chat_id, name, age, height, weight,
			measurements, about, notes, raw_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING date`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.UserName, p.ChatID, p.Name, p.Age, p.Height, p.Weight,
		p.Measurements, p.About, p.Notes, p.RawText,
	).Scan(&p.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: анкета %s", ErrConflict, p.ID)
		}
		return fmt.Errorf("ошибка создания анкеты: %w", err)
	}
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения анкеты: %w", err)
	}
	return p, nil
}

func (r *profileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY date DESC, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка анкет: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования анкеты: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Update заменяет name, age, height, weight, measurements, about, notes.
// Пустой about заменяется исходным текстом анкеты.
func (r *profileRepo) Update(ctx context.Context, id string, edit model.ProfileEdit) (*model.Profile, error) {
	query := `
		UPDATE profiles
		SET name = $2, age = $3, height = $4, weight = $5, measurements = $6,
			about = COALESCE($7, raw_text), notes = $8
		WHERE id = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRow(ctx, query,
		id, edit.Name, edit.Age, edit.Height, edit.Weight,
		edit.Measurements, edit.About, edit.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления анкеты: %w", err)
	}
	return p, nil
}

// ApplyEnrichment перезаписывает поля без блокировок: побеждает последняя запись.
func (r *profileRepo) ApplyEnrichment(ctx context.Context, id string, e model.Enrichment) error {
	query := `
		UPDATE profiles
		SET name = $2, age = $3, height = $4, weight = $5, measurements = $6,
			about = COALESCE($7, raw_text), notes = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		id, e.Name, e.Age, e.Height, e.Weight, e.Measurements, e.About, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи результата обогащения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) SetNotes(ctx context.Context, id, notes string) error {
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET notes = $2 WHERE id = $1`, id, notes)
	if err != nil {
		return fmt.Errorf("ошибка записи notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления анкеты: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
