// Package api provides the JSON handlers mounted under /api.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/pinchglobe/internal/config"
	"github.com/ayusman/pinchglobe/internal/store"
)

// SettingsHandler serves /api/settings and /api/settings/{key}.
//
// Writes are checked by validate before they are stored, and changed is
// called after every successful write or delete so the running pipeline
// can pick the new values up.
type SettingsHandler struct {
	repo     *store.SettingsRepository
	validate func(key, value string) error
	changed  func()
}

// NewSettingsHandler creates a handler over the store's settings table.
// validate and changed may be nil.
func NewSettingsHandler(s *store.Store, validate func(key, value string) error, changed func()) *SettingsHandler {
	return &SettingsHandler{repo: s.Settings(), validate: validate, changed: changed}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/settings")
	key = strings.TrimPrefix(key, "/")

	if key == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.list(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, key)
	case http.MethodPut:
		h.put(w, r, key)
	case http.MethodDelete:
		h.delete(w, key)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type settingResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

type listSettingsResponse struct {
	Settings []settingResponse `json:"settings"`
	Keys     []string          `json:"keys"`
}

type putSettingRequest struct {
	Value string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(s *store.Setting) settingResponse {
	return settingResponse{
		Key:       s.Key,
		Value:     s.Value,
		UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

func (h *SettingsHandler) list(w http.ResponseWriter) {
	settings, err := h.repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list settings")
		return
	}

	resp := listSettingsResponse{
		Settings: make([]settingResponse, 0, len(settings)),
		Keys:     config.Keys,
	}
	for _, s := range settings {
		resp.Settings = append(resp.Settings, toResponse(s))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *SettingsHandler) get(w http.ResponseWriter, key string) {
	s, err := h.repo.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get setting")
		return
	}
	WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request, key string) {
	var req putSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !config.KnownKey(key) {
		writeError(w, http.StatusBadRequest, "unknown setting "+key)
		return
	}
	if h.validate != nil {
		if err := h.validate(key, req.Value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.repo.Set(key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save setting")
		return
	}
	h.notify()

	s, err := h.repo.Get(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read back setting")
		return
	}
	WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *SettingsHandler) delete(w http.ResponseWriter, key string) {
	if err := h.repo.Delete(key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete setting")
		return
	}
	h.notify()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) notify() {
	if h.changed != nil {
		h.changed()
	}
}
