// Пакет enrichment — извлечение структурированных полей анкеты
// из свободного текста с помощью языковой модели.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/profile-intake/internal/domain/model"
)

// Диагностика в notes.
const (
	// NotesEmptyInput — notes для пустого входного текста.
	NotesEmptyInput = "input was empty"
	// NotesFailurePrefix — префикс notes при сбое обогащения.
	NotesFailurePrefix = "enrichment failed: "
)

// Ошибки обогащения. Наружу не возвращаются, попадают в notes.
var (
	ErrTimeout       = errors.New("timed out")
	ErrEmptyResponse = errors.New("empty response from model")
	ErrMalformed     = errors.New("malformed model response")
)

// DefaultTimeout — жёсткий лимит ожидания ответа модели.
const DefaultTimeout = 15 * time.Second

// systemInstruction — инструкция модели для разбора анкеты.
const systemInstruction = `Ты — ассистент для анализа анкет. Извлеки из текста структурированную информацию.
Пользователь пишет в свободной форме и в любом порядке. Распознай поля:
- name: имя (обычно одно слово с заглавной буквы).
- age: возраст (число, обычно двузначное).
- height: рост (число, обычно трёхзначное, может быть указано с "см").
- weight: вес (число, может быть указано с "кг").
- measurements: параметры фигуры (например "90/60/90" или "90-60-90").
- about: "о себе" (оставшийся осмысленный текст, не относящийся к другим полям).

Правила:
1. Отвечай только JSON-объектом, без пояснений и без markdown.
2. Если поле не найдено, его значение — null.
3. age, height, weight — числа (number), не строки.
4. В about собери весь оставшийся осмысленный текст.

Пример текста: "Маша, 21. Обожаю танцевать и гулять. Рост 177, вес 58. 90/60/90"
Пример ответа:
{"name": "Маша", "age": 21, "height": 177, "weight": 58, "measurements": "90/60/90", "about": "Обожаю танцевать и гулять."}`

// Generator — вызов языковой модели: инструкция + текст → сырой текст ответа.
type Generator interface {
	Generate(ctx context.Context, instruction, text string) (string, error)
}

// Service — сервис обогащения анкет.
type Service struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
}

// NewService создаёт сервис обогащения.
// timeout <= 0 заменяется DefaultTimeout.
func NewService(gen Generator, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		gen:     gen,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "enrichment")),
	}
}

// Parse извлекает поля анкеты из text. Никогда не возвращает ошибку:
// при любом сбое About = text, а Notes содержит диагностику.
func (s *Service) Parse(ctx context.Context, text string) model.Enrichment {
	if strings.TrimSpace(text) == "" {
		enrichmentCalls.WithLabelValues(outcomeEmpty).Inc()
		return fallback(text, NotesEmptyInput)
	}

	start := time.Now()
	raw, err := s.generate(ctx, text)
	enrichmentDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		var result model.Enrichment
		result, err = parseResponse(raw)
		if err == nil {
			enrichmentCalls.WithLabelValues(outcomeOK).Inc()
			return result
		}
	}

	outcome := outcomeFailed
	if errors.Is(err, ErrTimeout) {
		outcome = outcomeTimeout
	}
	enrichmentCalls.WithLabelValues(outcome).Inc()

	s.logger.Warn("Ошибка ИИ-обогащения анкеты",
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
	return fallback(text, NotesFailurePrefix+err.Error())
}

// generate вызывает модель с жёстким таймаутом.
// По таймауту ожидание прекращается, результат запоздавшего вызова отбрасывается.
func (s *Service) generate(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic in generator: %v", r)}
			}
		}()
		out, err := s.gen.Generate(callCtx, systemInstruction, text)
		ch <- result{text: out, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
			}
			return "", r.err
		}
		if strings.TrimSpace(r.text) == "" {
			return "", ErrEmptyResponse
		}
		return r.text, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		return "", callCtx.Err()
	}
}

// fallback — результат без структурированных полей с сохранением исходного текста.
func fallback(text, notes string) model.Enrichment {
	return model.Enrichment{
		About: &text,
		Notes: &notes,
	}
}
