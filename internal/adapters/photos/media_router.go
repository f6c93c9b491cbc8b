package photos

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const photoCacheControl = "public, max-age=86400"

type mediaHandler struct {
	root   *os.Root
	logger logger.Logger
}

// NewMediaRouter serves the files in dir under RoutePrefix. Lookups are
// confined to dir, hidden files and nested paths are not served.
func NewMediaRouter(dir string, log logger.Logger) (http.Handler, func() error, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening photo directory %s: %w", dir, err)
	}

	handler := &mediaHandler{root: root, logger: log.Component("media_server")}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Get(RoutePrefix+"{filename}", handler.servePhoto)

	return router, root.Close, nil
}

func (h *mediaHandler) servePhoto(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if filename == "" || strings.HasPrefix(filename, ".") || strings.ContainsAny(filename, `/\`) {
		http.NotFound(w, r)

		return
	}

	info, err := h.root.Stat(filename)
	if err != nil || info.IsDir() {
		h.logger.Debug().Str("file", filename).Msg("photo not found")
		http.NotFound(w, r)

		return
	}

	w.Header().Set("Cache-Control", photoCacheControl)
	http.ServeFileFS(w, r, h.root.FS(), filename)
}
