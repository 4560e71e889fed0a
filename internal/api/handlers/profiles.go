// profiles.go — обработчики /api/profiles: приём анкеты, список, правка, удаление.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/profile-intake/internal/api/errors"
	"github.com/bigkaa/profile-intake/internal/domain/model"
	"github.com/bigkaa/profile-intake/internal/service"
)

const (
	// multipartMemory — часть формы, которая держится в памяти; остальное во временных файлах.
	multipartMemory = 32 << 20
	// formOverhead — запас на текстовые поля и заголовки multipart.
	formOverhead = 1 << 20
	// maxEditBody — лимит тела PUT-запроса.
	maxEditBody = 1 << 20
)

// ProfileService — операции сервиса анкет, используемые обработчиками.
type ProfileService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*model.Profile, error)
	ScheduleEnrichment(profileID, rawText string)
	List(ctx context.Context) ([]*model.Profile, error)
	Update(ctx context.Context, id string, edit model.ProfileEdit) (*model.Profile, error)
	Delete(ctx context.Context, id string) error
}

// ProfilesHandler — обработчик /api/profiles.
type ProfilesHandler struct {
	profiles ProfileService
	urls     mediaURLResolver
	maxBody  int64
	logger   *slog.Logger
}

// NewProfilesHandler создаёт обработчик анкет.
// publicBaseURL — внешний адрес сервиса для ссылок на локальные медиафайлы (может быть пустым).
func NewProfilesHandler(profiles ProfileService, limits service.UploadLimits, publicBaseURL string, logger *slog.Logger) *ProfilesHandler {
	var maxBody int64
	if limits.MaxFiles > 0 && limits.MaxFileSize > 0 {
		maxBody = int64(limits.MaxFiles)*limits.MaxFileSize + formOverhead
	}
	return &ProfilesHandler{
		profiles: profiles,
		urls:     newMediaURLResolver(publicBaseURL),
		maxBody:  maxBody,
		logger:   logger.With(slog.String("component", "profiles_handler")),
	}
}

// Routes регистрирует маршруты анкет.
func (h *ProfilesHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Submit)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List — GET /api/profiles. Все анкеты, новые первыми.
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		h.internalError(w, "ошибка получения списка анкет", err)
		return
	}

	resp := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, h.urls.profile(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Submit — POST /api/profiles (multipart/form-data).
// Поля: rawText, userName, chatId, media (повторяющееся).
// Ответ 201 отправляется клиенту до запуска обогащения.
func (h *ProfilesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, fmt.Sprintf("Размер запроса превышает %d байт", tooLarge.Limit))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := service.SubmitInput{
		RawText:  r.FormValue("rawText"),
		UserName: r.FormValue("userName"),
		ChatID:   r.FormValue("chatId"),
	}
	for _, fh := range r.MultipartForm.File["media"] {
		in.Files = append(in.Files, service.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	p, err := h.profiles.Submit(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.internalError(w, "ошибка создания анкеты", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.urls.profile(p))
	if err := http.NewResponseController(w).Flush(); err != nil {
		h.logger.Debug("Flush не поддерживается", slog.String("error", err.Error()))
	}

	h.profiles.ScheduleEnrichment(p.ID, p.RawText)
}

// editRequest — тело PUT /api/profiles/{id}.
// Прочие поля анкеты (id, date, media, rawText) игнорируются.
type editRequest struct {
	Name         *string `json:"name"`
	Age          *int    `json:"age"`
	Height       *int    `json:"height"`
	Weight       *int    `json:"weight"`
	Measurements *string `json:"measurements"`
	About        *string `json:"about"`
	Notes        *string `json:"notes"`
}

// Update — PUT /api/profiles/{id}. Полная замена редактируемых полей.
func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBody)).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректное тело запроса: %s", err.Error()))
		return
	}

	p, err := h.profiles.Update(r.Context(), id, model.ProfileEdit{
		Name:         req.Name,
		Age:          req.Age,
		Height:       req.Height,
		Weight:       req.Weight,
		Measurements: req.Measurements,
		About:        req.About,
		Notes:        req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Анкета не найдена")
		default:
			h.internalError(w, "ошибка обновления анкеты", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, h.urls.profile(p))
}

// Delete — DELETE /api/profiles/{id}. 204 при успехе.
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r)
	if !ok {
		return
	}

	if err := h.profiles.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Анкета не найдена")
			return
		}
		h.internalError(w, "ошибка удаления анкеты", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// profileID извлекает и проверяет UUID анкеты из пути.
func profileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор анкеты")
		return "", false
	}
	return id, true
}

func (h *ProfilesHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.String("error", err.Error()))
	apierrors.InternalError(w, "Внутренняя ошибка сервера")
}
