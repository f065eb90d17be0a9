package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"homecore/internal/inventory"
)

// maxImageUploadSize caps fridge item photos at 5 MB.
const maxImageUploadSize = 5 << 20

// fridgeUpdateRequest is the body for POST /api/fridge/update.
type fridgeUpdateRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Action   string `json:"action"`
}

// handleFridgeInventory returns every tracked inventory item.
func (s *Server) handleFridgeInventory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.inventory.Snapshot(),
	})
}

// handleFridgeUpdate applies an inventory mutation from the dashboard.
func (s *Server) handleFridgeUpdate(w http.ResponseWriter, r *http.Request) {
	var req fridgeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Action == "" {
		req.Action = inventory.ActionSet
	}

	update, err := s.dispatcher.ApplyInventoryUpdate(r.Context(), req.Item, req.Quantity, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrInvalidItem), errors.Is(err, inventory.ErrInvalidAction):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("fridge update failed", "item", req.Item, "error", err)
			writeInternalError(w, "failed to update inventory")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item":      update.Item,
		"low_stock": update.LowStock,
	})
}

// handleFridgeUploadImage stores a photo for an inventory item.
// Expects multipart form data with fields "item" and "image".
func (s *Server) handleFridgeUploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		writeBadRequest(w, "invalid multipart form")
		return
	}

	itemName := strings.TrimSpace(r.FormValue("item"))
	if itemName == "" {
		writeBadRequest(w, "item is required")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageUploadSize {
		writeBadRequest(w, "image exceeds 5MB limit")
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		writeBadRequest(w, "only image uploads are accepted")
		return
	}

	if err := os.MkdirAll(s.home.UploadsDir, 0o755); err != nil {
		s.logger.Error("creating uploads directory failed", "error", err)
		writeInternalError(w, "failed to store image")
		return
	}

	filename := fmt.Sprintf("fridge_%d_%s.jpg", time.Now().UnixMilli(), inventory.Normalise(itemName))
	destPath := filepath.Join(s.home.UploadsDir, filename)

	dest, err := os.Create(destPath)
	if err != nil {
		s.logger.Error("creating image file failed", "path", destPath, "error", err)
		writeInternalError(w, "failed to store image")
		return
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		s.logger.Error("writing image file failed", "path", destPath, "error", err)
		writeInternalError(w, "failed to store image")
		return
	}

	item, err := s.dispatcher.AttachItemImage(r.Context(), itemName, filename)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item":     item,
		"filename": filename,
	})
}

// handleFridgeImage serves a previously uploaded item photo.
func (s *Server) handleFridgeImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	// Reject anything that could escape the uploads directory
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		writeBadRequest(w, "invalid filename")
		return
	}

	path := filepath.Join(s.home.UploadsDir, filename)
	if _, err := os.Stat(path); err != nil {
		writeNotFound(w, "image not found")
		return
	}

	http.ServeFile(w, r, path)
}
