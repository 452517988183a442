// Package fileserver serves the files an offeror sells: it lists and reads
// them, reports their digests and publishes per-buyer encrypted copies to
// content-addressed storage.
package fileserver

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/dmitrijs2005/filetrade/internal/logging"
)

const listRoute = "files"

type FileServer struct {
	dir            string
	sealer         Sealer
	publisher      Publisher
	logger         logging.Logger
	publishTimeout time.Duration
}

func NewFileServer(dir string, s Sealer, p Publisher, l logging.Logger, publishTimeout time.Duration) *FileServer {
	return &FileServer{
		dir:            dir,
		sealer:         s,
		publisher:      p,
		logger:         l.With("module", "fileserver"),
		publishTimeout: publishTimeout,
	}
}

// Handler returns the HTTP API with CORS that reflects the caller's origin
// and allows credentials.
func (s *FileServer) Handler() http.Handler {
	r := httprouter.New()
	r.GET("/:fileName", s.getFile)
	r.POST("/encrypt_and_publish", s.encryptAndPublish)

	c := cors.New(cors.Options{
		AllowOriginFunc:  func(string) bool { return true },
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With"},
	})
	return s.logRequests(c.Handler(r))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func (s *FileServer) listFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error(r.Context(), "read directory", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, e.Name())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

// validName rejects anything that could resolve outside the directory.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// readFile writes the error response itself and returns ok=false on failure.
func (s *FileServer) readFile(w http.ResponseWriter, r *http.Request, name string) ([]byte, bool) {
	if !validName(name) {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return nil, false
	}

	content, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusBadRequest, "no such file")
			return nil, false
		}
		s.logger.Error(r.Context(), "read file", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return content, true
}

// hashRequested follows query-string truthiness: any value except empty,
// "false" and "0" asks for the digest.
func hashRequested(r *http.Request) bool {
	v := r.URL.Query().Get("hash")
	return v != "" && v != "false" && v != "0"
}

func (s *FileServer) getFile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("fileName")
	if name == listRoute {
		s.listFiles(w, r)
		return
	}

	content, ok := s.readFile(w, r, name)
	if !ok {
		return
	}

	if hashRequested(r) {
		sum := sha256.Sum256(content)
		writeJSON(w, http.StatusOK, map[string][]byte{"fileHash": sum[:]})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]byte{"fileContent": content})
}

type publishRequest struct {
	FileName  string `json:"fileName"`
	PublicKey string `json:"publicKey"`
}

func (s *FileServer) encryptAndPublish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Info(r.Context(), "encrypt and publish", "file", req.FileName)

	content, ok := s.readFile(w, r, req.FileName)
	if !ok {
		return
	}

	sealed, err := s.sealer.Seal(req.PublicKey, content)
	if err != nil {
		if errors.Is(err, ErrInvalidPublicKey) {
			writeError(w, http.StatusBadRequest, ErrInvalidPublicKey.Error())
			return
		}
		s.logger.Error(r.Context(), "seal", "file", req.FileName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encrypt file")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.publishTimeout)
	defer cancel()

	id, err := s.publisher.Publish(ctx, sealed)
	if err != nil {
		s.logger.Error(r.Context(), "publish", "file", req.FileName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish file")
		return
	}

	s.logger.Info(r.Context(), "published", "file", req.FileName, "cid", id, "size", len(sealed))
	writeJSON(w, http.StatusOK, map[string]string{"fileHash": id})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *FileServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "http", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

// Run serves the API on addr until ctx is cancelled, then shuts down.
func (s *FileServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting file server", "address", addr, "directory", s.dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping file server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
