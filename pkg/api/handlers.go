package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/fetchoor/pkg/reader"
)

type errorResponse struct {
	Error string `json:"error"`
}

type readerInfo struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
}

type treeResponse struct {
	Reader string   `json:"reader"`
	Prefix string   `json:"prefix"`
	Paths  []string `json:"paths"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListReaders lists configured readers and their backends.
func (s *server) handleListReaders(w http.ResponseWriter, _ *http.Request) {
	names := s.readers.Names()
	out := make([]readerInfo, 0, len(names))

	for _, name := range names {
		r, err := s.readers.Get(name)
		if err != nil {
			continue
		}

		out = append(out, readerInfo{Name: name, Backend: r.Backend()})
	}

	writeJSON(w, http.StatusOK, out)
}

// handleFile streams the full content of one object.
func (s *server) handleFile(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}

	opts, ok := readOptions(w, r)
	if !ok {
		return
	}

	filePath := chi.URLParam(r, "*")

	data, err := rd.Read(r.Context(), filePath, opts...)
	if err != nil {
		s.writeReadError(w, err)

		return
	}

	ct := mime.TypeByExtension(path.Ext(filePath))
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := w.Write(data); err != nil {
		s.log.WithError(err).Debug("Failed to write file response")
	}
}

// handleTree lists object paths below a prefix.
func (s *server) handleTree(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}

	opts, ok := readOptions(w, r)
	if !ok {
		return
	}

	prefix := chi.URLParam(r, "*")

	listing, err := rd.ListTree(r.Context(), prefix, opts...)
	if err != nil {
		s.writeReadError(w, err)

		return
	}

	if !listing.IsSupported() {
		writeJSON(w, http.StatusNotImplemented, errorResponse{
			"listing not supported by backend " + rd.Backend(),
		})

		return
	}

	writeJSON(w, http.StatusOK, treeResponse{
		Reader: chi.URLParam(r, "name"),
		Prefix: prefix,
		Paths:  listing.Paths(),
	})
}

func (s *server) lookupReader(
	w http.ResponseWriter, r *http.Request,
) (reader.Reader, bool) {
	rd, err := s.readers.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})

		return nil, false
	}

	return rd, true
}

// readOptions maps the container and verbose query parameters.
func readOptions(
	w http.ResponseWriter, r *http.Request,
) ([]reader.ReadOption, bool) {
	q := r.URL.Query()

	var opts []reader.ReadOption

	if c := q.Get("container"); c != "" {
		opts = append(opts, reader.WithContainer(c))
	}

	if v := q.Get("verbose"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"invalid verbose parameter"})

			return nil, false
		}

		opts = append(opts, reader.WithVerbose(verbose))
	}

	return opts, true
}

// writeReadError maps a read failure to an HTTP status.
func (s *server) writeReadError(w http.ResponseWriter, err error) {
	status := readErrorStatus(err)

	if status == http.StatusBadGateway {
		s.log.WithError(err).Warn("Backend read failed")
	}

	writeJSON(w, status, errorResponse{err.Error()})
}

func readErrorStatus(err error) int {
	switch {
	case errors.Is(err, reader.ErrInvalidPath),
		errors.Is(err, reader.ErrContainerRequired):
		return http.StatusBadRequest
	case reader.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
