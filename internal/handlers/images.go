package handlers

import (
	"net/http"
	"strconv"

	"photo-indexer/internal/database"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/mediatypes"
)

// ImageResponse is an active image as listed by the admin API.
type ImageResponse struct {
	database.Image
	MimeType string `json:"mimeType"`
}

// ListImages returns the active images of one month directory, selected by
// the year, month and optional label query parameters.
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	year, err := strconv.Atoi(query.Get("year"))
	if err != nil || year < 1 || year > 9999 {
		writeJSONError(w, "year must be a four-digit number", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(query.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeJSONError(w, "month must be between 1 and 12", http.StatusBadRequest)
		return
	}

	dir := database.DirectoryKey{Year: year, Month: month, DirLabel: query.Get("label")}
	images, err := h.store.ListActiveByDirectory(r.Context(), dir)
	if err != nil {
		logging.Error("Failed to list %s: %v", dir, err)
		writeJSONError(w, "failed to list images", http.StatusInternalServerError)
		return
	}

	response := make([]ImageResponse, len(images))
	for i, img := range images {
		response[i] = ImageResponse{Image: img, MimeType: mediatypes.GetMimeType(img.Extension)}
	}
	writeJSONResponse(w, http.StatusOK, response)
}
