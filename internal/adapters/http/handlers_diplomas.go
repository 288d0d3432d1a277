package web

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
	domainDiploma "conference/internal/domain/diploma"
)

// handleDiplomasByEmail lists the diplomas issued to one participant.
func (s *server) handleDiplomasByEmail(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryDiplomasByEmail(r.Context(), r.URL.Query().Get("email"), s.Stores.Diplomas)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleListDiplomas lists every issued diploma with its participant and activity.
func (s *server) handleListDiplomas(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryAllDiplomas(r.Context(), s.Stores.Diplomas)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDownloadDiploma streams a stored diploma PDF.
func (s *server) handleDownloadDiploma(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	listing, err := s.Stores.Diplomas.GetDetailed(r.Context(), id)
	if err != nil {
		respondError(w, r, err, orchestrators.ErrDiplomaNotFound.Error())
		return
	}
	rc, err := s.Files.Open(r.Context(), listing.FileKey)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": domainDiploma.FileName(listing.FullName),
	}))
	w.WriteHeader(http.StatusOK)
	n, err := io.Copy(w, rc)
	if err != nil {
		slog.Warn("diploma_download_interrupted", "diploma_id", id, "bytes", n, "error", err)
		return
	}
	slog.Debug("diploma_downloaded", "diploma_id", id, "bytes", n)
}

// handleGenerateDiplomas issues diplomas for every attended registration without one.
func (s *server) handleGenerateDiplomas(w http.ResponseWriter, r *http.Request) {
	result, err := orchestrators.ExecuteIssuePendingDiplomas(r.Context(), s.diplomaDeps())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSendAllDiplomas emails every stored diploma that was never sent.
func (s *server) handleSendAllDiplomas(w http.ResponseWriter, r *http.Request) {
	result, err := orchestrators.ExecuteSendAllDiplomas(r.Context(), s.diplomaDeps())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleResendDiploma emails one stored diploma again.
func (s *server) handleResendDiploma(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := orchestrators.ExecuteResendDiploma(r.Context(), id, s.diplomaDeps())
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
