package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/documents"
)

const (
	defaultTextSource = "manual-input"
	maxUploadBytes    = 32 << 20
)

// uploadResult reports one ingested file.
type uploadResult struct {
	File   string `json:"file"`
	Chunks int    `json:"chunks"`
	Status string `json:"status"`
}

// uploadError reports one rejected file.
type uploadError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// handleIngestText handles POST /api/documents/text.
func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.TextIngestRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	source := strings.TrimSpace(req.SourceName)
	if source == "" {
		source = defaultTextSource
	}
	userID := requestUserID(r, req.UserID)

	result, err := s.app.DocumentService.IngestText(r.Context(), userID, source, req.Text)
	if errors.Is(err, documents.ErrEmptyDocument) {
		WriteError(w, http.StatusBadRequest, "Text content is empty")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("source", source).Msg("Text ingestion failed")
		WriteError(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"source":       result.Source,
		"chunks_count": result.Chunks,
	})
}

// handleIngestUpload handles POST /api/documents/upload with multipart
// "files". PDFs are parsed; anything else is read as UTF-8 or Latin-1 text.
func (s *Server) handleIngestUpload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one file is required")
		return
	}
	userID := requestUserID(r, r.FormValue("user_id"))

	results := []uploadResult{}
	failures := []uploadError{}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			failures = append(failures, uploadError{File: fh.Filename, Error: err.Error()})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			failures = append(failures, uploadError{File: fh.Filename, Error: err.Error()})
			continue
		}

		var result *models.IngestResult
		if isPDF(fh.Filename, fh.Header.Get("Content-Type")) {
			result, err = s.app.DocumentService.IngestPDF(r.Context(), userID, fh.Filename, data)
		} else {
			result, err = s.app.DocumentService.IngestText(r.Context(), userID, fh.Filename, decodeText(data))
		}
		if err != nil {
			msg := err.Error()
			if errors.Is(err, documents.ErrEmptyDocument) {
				msg = "File is empty"
			}
			failures = append(failures, uploadError{File: fh.Filename, Error: msg})
			continue
		}
		results = append(results, uploadResult{File: fh.Filename, Chunks: result.Chunks, Status: "success"})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     len(results) > 0,
		"ingested":    results,
		"errors":      failures,
		"total_files": len(files),
		"successful":  len(results),
		"failed":      len(failures),
	})
}

// handleDocumentsDelete handles DELETE /api/documents.
func (s *Server) handleDocumentsDelete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	n, err := s.app.DocumentService.Delete(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Document deletion failed")
		WriteError(w, http.StatusInternalServerError, "Deletion failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": n})
}

func isPDF(filename, contentType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") || contentType == "application/pdf"
}

// decodeText returns data as UTF-8, reading it as Latin-1 when it is not valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(text)
}
