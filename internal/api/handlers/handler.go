// handler.go — общие функции обработчиков и JSON-представление анкеты.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/profile-intake/internal/domain/model"
)

// mediaResponse — медиафайл в ответе API.
type mediaResponse struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// profileResponse — анкета в ответе API.
type profileResponse struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	UserName     string          `json:"userName"`
	ChatID       *int64          `json:"chatId"`
	Media        []mediaResponse `json:"media"`
	Name         *string         `json:"name"`
	Age          *int            `json:"age"`
	Height       *int            `json:"height"`
	Weight       *int            `json:"weight"`
	Measurements *string         `json:"measurements"`
	About        *string         `json:"about"`
	Notes        *string         `json:"notes"`
	RawText      string          `json:"rawText"`
}

// mediaURLResolver превращает локатор хранилища в URL для клиента.
type mediaURLResolver struct {
	// baseURL — внешний адрес сервиса (PI_PUBLIC_BASE_URL), может быть пустым
	baseURL string
}

func newMediaURLResolver(baseURL string) mediaURLResolver {
	return mediaURLResolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// resolve: абсолютные URL (S3) возвращаются как есть,
// локальные локаторы uploads/<name> раздаются по /uploads/<name>.
func (m mediaURLResolver) resolve(locator string) string {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return locator
	}
	return m.baseURL + "/" + strings.TrimLeft(locator, "/")
}

func (m mediaURLResolver) profile(p *model.Profile) profileResponse {
	media := make([]mediaResponse, 0, len(p.Media))
	for _, item := range p.Media {
		media = append(media, mediaResponse{
			Type: string(item.Kind),
			URL:  m.resolve(item.Locator),
		})
	}

	return profileResponse{
		ID:           p.ID,
		Date:         p.CreatedAt.UTC(),
		UserName:     p.UserName,
		ChatID:       p.ChatID,
		Media:        media,
		Name:         p.Name,
		Age:          p.Age,
		Height:       p.Height,
		Weight:       p.Weight,
		Measurements: p.Measurements,
		About:        p.About,
		Notes:        p.Notes,
		RawText:      p.RawText,
	}
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
