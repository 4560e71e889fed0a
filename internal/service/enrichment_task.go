// enrichment_task.go — фоновая задача обогащения одной анкеты.
// Один проход без повторов: разбор текста → запись полей →
// при сбое записи одна попытка записать диагностику в notes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bigkaa/profile-intake/internal/domain/model"
	"github.com/bigkaa/profile-intake/internal/enrichment"
	"github.com/bigkaa/profile-intake/internal/repository"
)

// NotesCriticalPrefix — префикс notes, если результат обогащения не удалось записать.
const NotesCriticalPrefix = "critical background enrichment error: "

// TaskResult — итог выполнения задачи обогащения.
type TaskResult string

const (
	// TaskApplied — результат (успешный или диагностический) записан в анкету.
	TaskApplied TaskResult = "applied"
	// TaskFallback — запись результата не удалась, записана диагностика в notes.
	TaskFallback TaskResult = "fallback"
	// TaskLost — не удалась ни запись результата, ни запись диагностики.
	TaskLost TaskResult = "lost"
	// TaskSkipped — пустой текст, задача не выполнялась.
	TaskSkipped TaskResult = "skipped"
	// TaskGone — анкета удалена до завершения задачи.
	TaskGone TaskResult = "gone"
)

// Enricher — разбор текста анкеты. Не возвращает ошибок.
type Enricher interface {
	Parse(ctx context.Context, text string) model.Enrichment
}

// EnrichmentTask — фоновая задача обогащения анкеты.
type EnrichmentTask struct {
	enricher Enricher
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// NewEnrichmentTask создаёт задачу обогащения.
func NewEnrichmentTask(enricher Enricher, profiles repository.ProfileRepository, logger *slog.Logger) *EnrichmentTask {
	return &EnrichmentTask{
		enricher: enricher,
		profiles: profiles,
		logger:   logger.With(slog.String("component", "enrichment_task")),
	}
}

// Run обогащает анкету profileID по тексту text.
// Запись идёт без блокировок: правка администратора, сделанная во время
// обогащения, перезаписывается.
func (t *EnrichmentTask) Run(ctx context.Context, profileID, text string) TaskResult {
	result := t.run(ctx, profileID, text)
	enrichmentTasks.WithLabelValues(string(result)).Inc()
	return result
}

func (t *EnrichmentTask) run(ctx context.Context, profileID, text string) TaskResult {
	logger := t.logger.With(slog.String("profile_id", profileID))

	if strings.TrimSpace(text) == "" {
		logger.Debug("Пустой текст анкеты, обогащение пропущено")
		return TaskSkipped
	}

	parsed := t.enricher.Parse(ctx, text)

	err := t.profiles.ApplyEnrichment(ctx, profileID, parsed)
	if err == nil {
		if parsed.Notes != nil && strings.HasPrefix(*parsed.Notes, enrichment.NotesFailurePrefix) {
			logger.Warn("Обогащение не удалось, диагностика записана в notes",
				slog.String("notes", *parsed.Notes),
			)
		} else {
			logger.Info("Анкета обогащена")
		}
		return TaskApplied
	}

	if errors.Is(err, repository.ErrNotFound) {
		logger.Info("Анкета удалена до завершения обогащения")
		return TaskGone
	}

	logger.Error("Ошибка записи результата обогащения", slog.String("error", err.Error()))

	if fbErr := t.profiles.SetNotes(ctx, profileID, NotesCriticalPrefix+err.Error()); fbErr != nil {
		logger.Error("Не удалось записать диагностику обогащения, анкета останется без структурированных полей",
			slog.String("error", fbErr.Error()),
		)
		return TaskLost
	}
	return TaskFallback
}
