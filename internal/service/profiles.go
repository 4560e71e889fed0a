// profiles.go — сервис анкет: приём анкеты с медиафайлами,
// список, правка и удаление администратором, запуск обогащения.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bigkaa/profile-intake/internal/domain/model"
	"github.com/bigkaa/profile-intake/internal/repository"
	"github.com/bigkaa/profile-intake/internal/storage/blobstore"
)

// blobCleanupTimeout — лимит на удаление медиафайлов после отката или удаления анкеты.
const blobCleanupTimeout = 30 * time.Second

// Transactor — выполнение операций над репозиториями в одной транзакции.
// Реализуется repository.TxRunner.
type Transactor interface {
	WithRepos(ctx context.Context, fn func(repos repository.Repos) error) error
}

// UploadLimits — ограничения на медиафайлы одной анкеты.
type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

// UploadFile — медиафайл из формы анкеты.
type UploadFile struct {
	// Filename — исходное имя файла у клиента
	Filename string
	// ContentType — заявленный клиентом MIME-тип
	ContentType string
	// Size — размер в байтах
	Size int64
	// Open открывает содержимое файла для чтения
	Open func() (io.ReadCloser, error)
}

// SubmitInput — данные анкеты от пользователя.
type SubmitInput struct {
	RawText  string
	UserName string `validate:"required"`
	ChatID   string `validate:"omitempty,numeric"`
	Files    []UploadFile
}

// ProfileService — сервис анкет.
type ProfileService struct {
	tx         Transactor
	repos      repository.Repos
	blobs      blobstore.BlobStore
	task       *EnrichmentTask
	dispatcher *Dispatcher
	limits     UploadLimits
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewProfileService создаёт сервис анкет.
func NewProfileService(
	tx Transactor,
	repos repository.Repos,
	blobs blobstore.BlobStore,
	task *EnrichmentTask,
	dispatcher *Dispatcher,
	limits UploadLimits,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		tx:         tx,
		repos:      repos,
		blobs:      blobs,
		task:       task,
		dispatcher: dispatcher,
		limits:     limits,
		validate:   validator.New(),
		logger:     logger.With(slog.String("component", "profile_service")),
	}
}

// Submit создаёт анкету и её медиафайлы в одной транзакции.
// Возвращённая анкета не обогащена: структурированные поля пусты, about = rawText.
// При ошибке сохранённые этим запросом файлы удаляются (best-effort).
func (s *ProfileService) Submit(ctx context.Context, in SubmitInput) (*model.Profile, error) {
	chatID, err := s.validateSubmission(in)
	if err != nil {
		return nil, err
	}

	about := in.RawText
	p := &model.Profile{
		ID:       uuid.NewString(),
		UserName: in.UserName,
		ChatID:   chatID,
		About:    &about,
		RawText:  in.RawText,
		Media:    make([]model.MediaItem, 0, len(in.Files)),
	}

	var saved []string
	err = s.tx.WithRepos(ctx, func(r repository.Repos) error {
		if err := r.Profiles.Create(ctx, p); err != nil {
			return err
		}

		for i, f := range in.Files {
			locator, err := s.saveBlob(ctx, f)
			if err != nil {
				return fmt.Errorf("ошибка сохранения файла %q: %w", f.Filename, err)
			}
			saved = append(saved, locator)

			item := model.MediaItem{
				ID:        uuid.NewString(),
				ProfileID: p.ID,
				Kind:      model.KindFromContentType(f.ContentType),
				Locator:   locator,
				Position:  i,
			}
			if err := r.Media.Create(ctx, &item); err != nil {
				return err
			}
			p.Media = append(p.Media, item)
		}
		return nil
	})
	if err != nil {
		s.cleanupBlobs(ctx, saved, "rollback")
		return nil, fmt.Errorf("ошибка создания анкеты: %w", err)
	}

	s.logger.Info("Анкета создана",
		slog.String("profile_id", p.ID),
		slog.String("user_name", p.UserName),
		slog.Int("media", len(p.Media)),
	)
	return p, nil
}

// validateSubmission проверяет анкету и возвращает разобранный chatId.
func (s *ProfileService) validateSubmission(in SubmitInput) (*int64, error) {
	probe := in
	probe.UserName = strings.TrimSpace(in.UserName)
	probe.ChatID = strings.TrimSpace(in.ChatID)

	if err := s.validate.Struct(probe); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "UserName":
				return nil, newValidationError("Отсутствует обязательное поле: userName")
			case "ChatID":
				return nil, newValidationError("Поле chatId должно быть целым числом")
			}
		}
		return nil, newValidationError("Некорректные данные анкеты: %v", err)
	}

	if strings.TrimSpace(in.RawText) == "" && len(in.Files) == 0 {
		return nil, newValidationError("Необходимо предоставить текст анкеты или прикрепить медиафайлы")
	}

	if s.limits.MaxFiles > 0 && len(in.Files) > s.limits.MaxFiles {
		return nil, newValidationError("Слишком много файлов: %d, максимум %d", len(in.Files), s.limits.MaxFiles)
	}
	for _, f := range in.Files {
		if s.limits.MaxFileSize > 0 && f.Size > s.limits.MaxFileSize {
			return nil, newValidationError("Файл %q превышает максимальный размер %d байт", f.Filename, s.limits.MaxFileSize)
		}
	}

	if probe.ChatID == "" {
		return nil, nil
	}
	chatID, err := strconv.ParseInt(probe.ChatID, 10, 64)
	if err != nil {
		return nil, newValidationError("Поле chatId должно быть целым числом")
	}
	return &chatID, nil
}

// saveBlob сохраняет содержимое файла в хранилище.
func (s *ProfileService) saveBlob(ctx context.Context, f UploadFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return s.blobs.Save(ctx, rc, f.Filename, f.ContentType)
}

// cleanupBlobs удаляет файлы из хранилища. Ошибки только логируются.
// Выполняется и после отмены контекста запроса.
func (s *ProfileService) cleanupBlobs(ctx context.Context, locators []string, reason string) {
	if len(locators) == 0 {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()

	for _, locator := range locators {
		if err := s.blobs.Delete(cleanupCtx, locator); err != nil {
			blobCleanupFailures.Inc()
			s.logger.Warn("Не удалось удалить медиафайл",
				slog.String("reason", reason),
				slog.String("locator", locator),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ScheduleEnrichment запускает фоновое обогащение анкеты.
// Вызывается после отправки ответа клиенту. Пустой текст не обогащается.
func (s *ProfileService) ScheduleEnrichment(profileID, rawText string) {
	if strings.TrimSpace(rawText) == "" {
		enrichmentTasks.WithLabelValues(string(TaskSkipped)).Inc()
		return
	}

	s.dispatcher.Go("enrichment", func(ctx context.Context) {
		s.task.Run(ctx, profileID, rawText)
	})
}

// List возвращает все анкеты с медиафайлами, новые первыми.
func (s *ProfileService) List(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.repos.Profiles.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	media, err := s.repos.Media.ListByProfileIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		p.Media = media[p.ID]
		if p.Media == nil {
			p.Media = []model.MediaItem{}
		}
	}
	return profiles, nil
}

// Update полностью заменяет редактируемые поля анкеты.
func (s *ProfileService) Update(ctx context.Context, id string, edit model.ProfileEdit) (*model.Profile, error) {
	if err := s.validate.Struct(edit); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, newValidationError("Некорректное значение поля %s", strings.ToLower(verrs[0].Field()))
		}
		return nil, newValidationError("Некорректные данные анкеты: %v", err)
	}

	p, err := s.repos.Profiles.Update(ctx, id, edit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	p.Media, err = s.repos.Media.ListByProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Media == nil {
		p.Media = []model.MediaItem{}
	}

	s.logger.Info("Анкета обновлена", slog.String("profile_id", id))
	return p, nil
}

// Delete удаляет анкету и её медиафайлы.
// Файлы удаляются из хранилища после коммита; ошибки только логируются.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	var locators []string
	err := s.tx.WithRepos(ctx, func(r repository.Repos) error {
		media, err := r.Media.ListByProfile(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Profiles.Delete(ctx, id); err != nil {
			return err
		}
		for _, m := range media {
			locators = append(locators, m.Locator)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("ошибка удаления анкеты: %w", err)
	}

	s.cleanupBlobs(ctx, locators, "delete")

	s.logger.Info("Анкета удалена",
		slog.String("profile_id", id),
		slog.Int("media", len(locators)),
	)
	return nil
}
