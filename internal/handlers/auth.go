package handlers

import (
	"net/http"
	"strings"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	cfg *config.Config
	log *logrus.Entry
}

func NewAuthHandler(logger *logrus.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		cfg: cfg,
		log: logger.WithField("component", "auth_handler"),
	}
}

// HandleVerify checks the bearer token. Full signature validation is the
// identity provider's job; this endpoint only rejects requests with a missing
// token, or a mismatched one when a static token is configured.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	if h.cfg.AuthToken != "" && token != h.cfg.AuthToken {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
