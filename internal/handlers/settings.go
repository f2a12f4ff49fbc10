package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"reportgen/internal/logger"
	"reportgen/internal/settings"
)

// Chatter answers a single chat message.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

type SettingsHandler struct {
	log   *logger.Logger
	store *settings.Store
	chat  Chatter
}

func NewSettingsHandler(log *logger.Logger, store *settings.Store, chat Chatter) *SettingsHandler {
	return &SettingsHandler{
		log:   log.With("handler", "SettingsHandler"),
		store: store,
		chat:  chat,
	}
}

type OpenAISettingsRequest struct {
	Endpoint string `json:"endpoint"`
	Key      string `json:"key"`
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// GET /settings/openai
// The key itself is never returned.
func (h *SettingsHandler) GetOpenAI(c *gin.Context) {
	o, err := h.store.OpenAI()
	if err != nil {
		respondError(c, h.log, "Failed to read settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": o.Endpoint, "key_configured": o.Key != ""})
}

// PUT /settings/openai
func (h *SettingsHandler) SaveOpenAI(c *gin.Context) {
	var req OpenAISettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.store.SaveOpenAI(settings.OpenAI{Endpoint: req.Endpoint, Key: req.Key}); err != nil {
		respondError(c, h.log, "Failed to save settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings saved"})
}

// POST /chat
func (h *SettingsHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	reply, err := h.chat.Chat(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, h.log, "Chat request failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": req.Message, "reply": reply})
}
