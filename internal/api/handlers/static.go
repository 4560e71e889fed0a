// static.go — раздача собранного клиентского приложения (SPA).
package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	apierrors "github.com/bigkaa/profile-intake/internal/api/errors"
)

// SPAHandler отдаёт файлы из каталога сборки клиента.
// Неизвестные пути вне /api получают index.html (маршрутизация на клиенте).
type SPAHandler struct {
	dir   string
	files http.Handler
}

// NewSPAHandler создаёт обработчик для каталога dir.
func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{
		dir:   dir,
		files: http.FileServer(http.Dir(dir)),
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		apierrors.NotFound(w, "Маршрут не найден")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		apierrors.NotFound(w, "Маршрут не найден")
		return
	}

	name := path.Clean("/" + r.URL.Path)
	info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(name)))
	if err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}

	h.serveIndex(w, r)
}

// serveIndex отдаёт index.html без редиректов http.ServeFile.
func (h *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(h.dir, "index.html"))
	if err != nil {
		apierrors.NotFound(w, "Маршрут не найден")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}

// NotFoundJSON — 404 в формате API, когда SPA не раздаётся.
func NotFoundJSON(w http.ResponseWriter, _ *http.Request) {
	apierrors.NotFound(w, "Маршрут не найден")
}
