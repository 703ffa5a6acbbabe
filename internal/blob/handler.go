package blob

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/httputil"
)

// Handler serves blobs to holders of a signed download URL. It sits outside
// the bearer-auth group; the token in the query string is the credential.
type Handler struct {
	store  *FileStore
	signer *URLSigner
	logger *slog.Logger
}

func NewHandler(store *FileStore, signer *URLSigner, logger *slog.Logger) *Handler {
	return &Handler{store: store, signer: signer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/files/*", h.HandleDownload)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if err := h.signer.Verify(r.URL.Query().Get("token"), key); err != nil {
		httputil.WriteError(w, err)
		return
	}

	f, err := h.store.Open(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "file not found"))
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to open blob", "key", key, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open file"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stat file"))
		return
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
}
