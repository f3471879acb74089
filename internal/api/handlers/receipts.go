package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/finledger/finledger/internal/api/middleware"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/receipts"
)

// maxReceiptBytes caps the accepted receipt image size.
const maxReceiptBytes = 10 << 20

// ReceiptsHandler handles receipt scanning. archive may be nil when no
// bucket is configured; scans still work, originals are just not kept.
type ReceiptsHandler struct {
	scanner *receipts.Scanner
	archive *receipts.Archive
	log     zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(scanner *receipts.Scanner, archive *receipts.Archive, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{scanner: scanner, archive: archive, log: log}
}

// Scan handles POST /api/receipts/scan. The body is the raw image; the
// response is the extracted fields ready to prefill a transaction form.
func (h *ReceiptsHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	mimeType := r.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	imageBytes, err := io.ReadAll(io.LimitReader(r.Body, maxReceiptBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(imageBytes) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Image body is required")
		return
	}
	if len(imageBytes) > maxReceiptBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}

	receipt, err := h.scanner.Scan(r.Context(), imageBytes, mimeType)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	var archiveURI string
	if h.archive != nil {
		archiveURI, err = h.archive.Store(r.Context(), ownerID, imageBytes, mimeType)
		if err != nil {
			// the scan succeeded; losing the archive copy is not fatal
			h.log.Warn().Err(err).Msg("Failed to archive receipt image")
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"receipt":     receipt,
		"archive_uri": archiveURI,
	})
}
