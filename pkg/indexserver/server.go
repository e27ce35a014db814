// Package indexserver serves a local directory of distributions through the
// PyPI JSON API, so that any client of that API (including the warehouse
// repository) can read it over HTTP.
//
// Routes:
//
//	GET /pypi/{name}/json            project listing with every release
//	GET /pypi/{name}/{version}/json  files of one release
//	GET /files/{filename}            the archive itself
//
// Every response carries an X-Request-ID header. An incoming X-Request-ID is
// echoed back; otherwise a random UUID is generated.
package indexserver

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/integrations/pypi"
	"github.com/matzehuels/reposolve/pkg/release"
	"github.com/matzehuels/reposolve/pkg/repository/local"
)

// RequestIDHeader is the header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// Server is an http.Handler serving a local repository.
type Server struct {
	repo    *local.Repository
	logger  *log.Logger
	baseURL string
	router  chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger. Defaults to [log.Default].
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithBaseURL sets the external URL used in file links. By default links
// are built from the request's Host header.
func WithBaseURL(u string) Option {
	return func(s *Server) { s.baseURL = strings.TrimRight(u, "/") }
}

// New creates a server for repo.
func New(repo *local.Repository, opts ...Option) *Server {
	s := &Server{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Get("/pypi/{name}/json", s.handleProject)
	r.Get("/pypi/{name}/{version}/json", s.handleRelease)
	r.Get("/files/{filename}", s.handleFile)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := errs.ValidatePackageName(name); err != nil {
		writeError(w, http.StatusBadRequest, errs.UserMessage(err))
		return
	}
	files, err := s.repo.Files(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	project := pypi.Project{Releases: make(map[string][]pypi.File)}
	arts := make([]release.Artifact, 0, len(files))
	for _, f := range files {
		project.Releases[f.Version] = append(project.Releases[f.Version], s.file(r, f))
		arts = append(arts, f.Artifact)
	}
	project.Info = s.info(files[0], name)
	if latest, _ := release.Build(release.Query{RawName: name}, arts, false); len(latest) > 0 {
		project.Info.Version = latest[0].Version.String()
	}
	writeJSON(w, project)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	name, version := chi.URLParam(r, "name"), chi.URLParam(r, "version")
	if err := errs.ValidatePackageName(name); err != nil {
		writeError(w, http.StatusBadRequest, errs.UserMessage(err))
		return
	}
	files, err := s.repo.Files(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var rel pypi.Release
	for _, f := range files {
		if f.Version == version {
			rel.URLs = append(rel.URLs, s.file(r, f))
		}
	}
	if len(rel.URLs) == 0 {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	rel.Info = s.info(files[0], name)
	rel.Info.Version = version
	writeJSON(w, rel)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, ok := s.repo.Lookup(r.Context(), filename)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

// info names the project as its first file spells it.
func (s *Server) info(f local.File, name string) pypi.Info {
	if n, _, ok := local.ParseFilename(f.Filename, archiveExt(f.Filename)); ok {
		name = n
	}
	return pypi.Info{Name: name}
}

func (s *Server) file(r *http.Request, f local.File) pypi.File {
	return pypi.File{
		Filename:    f.Filename,
		URL:         s.base(r) + "/files/" + f.Filename,
		Digests:     pypi.Digests{SHA256: f.Hash},
		UploadTime:  f.Time.UTC(),
		PackageType: packageType(f.Filename),
	}
}

func (s *Server) base(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func packageType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".whl":
		return pypi.TypeWheel
	case ".egg":
		return pypi.TypeEgg
	}
	return pypi.TypeSdist
}

// archiveExt returns the extension of a distribution file name, treating
// ".tar.*" as one extension.
func archiveExt(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.xz"} {
		if strings.HasSuffix(lower, ext) {
			return filename[len(filename)-len(ext):]
		}
	}
	return filepath.Ext(filename)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
