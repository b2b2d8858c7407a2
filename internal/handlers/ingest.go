package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/agrimech/manuals-qa/internal/manuals"
	"github.com/agrimech/manuals-qa/internal/models"
	"github.com/agrimech/manuals-qa/internal/storage"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 64 << 20

type IngestHandler struct {
	cfg     *config.Config
	manuals manuals.Store
	archive storage.Archive
	log     *logrus.Entry
}

// NewIngestHandler builds the manual-ingestion handler. archive may be nil,
// in which case uploaded originals are not retained.
func NewIngestHandler(logger *logrus.Logger, cfg *config.Config, manualStore manuals.Store, archive storage.Archive) *IngestHandler {
	return &IngestHandler{
		cfg:     cfg,
		manuals: manualStore,
		archive: archive,
		log:     logger.WithField("component", "ingest_handler"),
	}
}

// HandleIngest accepts a multipart PDF upload, extracts its text, and stores
// it as the manual for the given equipment model.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "PDF file required")
		return
	}
	defer file.Close()

	model := r.FormValue("model")
	if model == "" {
		model = "General"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.WithError(err).Error("Failed to read upload")
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	content, pages, err := extractText(data)
	if err != nil {
		h.log.WithError(err).WithField("filename", header.Filename).Warn("PDF parse failed")
		writeError(w, http.StatusBadRequest, "Could not parse PDF")
		return
	}
	if strings.TrimSpace(content) == "" {
		writeError(w, http.StatusBadRequest, "No extractable text in PDF")
		return
	}

	sourceKey := ""
	if h.archive != nil {
		sourceKey = fmt.Sprintf("manuals/%s/%s.pdf", model, uuid.NewString())
	}

	manual := &models.Manual{
		Model:      model,
		Content:    content,
		SourceKey:  sourceKey,
		PageCount:  pages,
		UploadedAt: time.Now().UTC(),
	}

	if err := h.manuals.Insert(r.Context(), manual); err != nil {
		h.log.WithError(err).Error("Manual insert failed")
		writeError(w, http.StatusInternalServerError, "Failed to store manual")
		return
	}

	if h.archive != nil {
		go h.archiveOriginal(sourceKey, data)
	}

	h.log.WithFields(logrus.Fields{
		"model": model,
		"pages": pages,
		"bytes": len(data),
	}).Info("Manual ingested")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"inserted_id": manual.ID,
		"model":       model,
		"pages":       pages,
		"characters":  len(content),
	})
}

// archiveOriginal copies the raw PDF to S3. Ingestion has already succeeded;
// an archive failure is only logged.
func (h *IngestHandler) archiveOriginal(key string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.archive.Put(ctx, key, data, "application/pdf"); err != nil {
		h.log.WithError(err).WithField("key", key).Warn("Failed to archive PDF original")
	}
}

// extractText concatenates the plain text of every page. Pages that cannot be
// read are skipped rather than failing the whole document. The pdf library
// panics on some malformed inputs, so uploads are parsed under a recover.
func extractText(data []byte) (content string, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf parse panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf open failed: %w", err)
	}

	var sb strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), pages, nil
}
