package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtzanidakis/securevault/internal/secrets"
)

func (s *Server) createSecret(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	id, err := s.secrets.Create(body.Name, body.Value)
	if err != nil {
		slog.Error("create secret failed", "subject", subjectFrom(r), "error", err)
		jsonError(w, "secret could not be stored", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]any{
		"message": "secret stored (encrypted)",
		"id":      id,
	})
}

func (s *Server) getSecret(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sec, err := s.secrets.Get(id)
	switch {
	case errors.Is(err, secrets.ErrNotFound):
		jsonError(w, "secret not found", http.StatusNotFound)
		return
	case errors.Is(err, secrets.ErrDecryptionFailed):
		jsonError(w, "secret could not be decrypted", http.StatusInternalServerError)
		return
	case err != nil:
		slog.Error("get secret failed", "id", id, "error", err)
		jsonError(w, "secret could not be loaded", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]any{
		"id":             sec.ID,
		"name":           sec.Name,
		"decryptedValue": sec.Value,
		"createdAt":      sec.CreatedAt,
	})
}
