package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

// FileOpener is satisfied by *dbmongo.MediaStorage.
type FileOpener interface {
	OpenFile(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.MediaFile, error)
}

type HTTPServer struct {
	storage FileOpener
	logger  *zap.Logger
}

func NewHTTPServer(storage FileOpener, logger *zap.Logger) *HTTPServer {
	return &HTTPServer{storage: storage, logger: logger}
}

func (s *HTTPServer) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/media/{fileId}", s.serveFile).Methods(http.MethodGet, http.MethodHead)
}

func (s *HTTPServer) serveFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]

	fileReader, mediaFile, err := s.storage.OpenFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			common.WriteError(w, s.logger, common.NotFound("File not found"))
			return
		}
		common.WriteError(w, s.logger, err)
		return
	}
	defer fileReader.Close()

	w.Header().Set("Content-Type", contentType(mediaFile))
	w.Header().Set("Content-Length", strconv.FormatInt(mediaFile.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, fileReader); err != nil {
		s.logger.Warn("error streaming file", zap.String("file_id", fileID), zap.Error(err))
	}
}

// contentType prefers the stored MIME type and falls back to the file extension.
func contentType(f *dbmongo.MediaFile) string {
	if f.MimeType != "" {
		return f.MimeType
	}
	return common.MimeTypeFromFilename(f.Filename)
}
