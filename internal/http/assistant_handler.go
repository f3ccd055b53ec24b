package http

import (
	"context"
	"net/http"
	"time"

	"github.com/hema22923/AgriConnect/internal/assistant"
	"github.com/hema22923/AgriConnect/internal/domain"
)

type AssistantHandler struct {
	assistant *assistant.Assistant
	timeout   time.Duration
}

func NewAssistantHandler(a *assistant.Assistant, timeout time.Duration) *AssistantHandler {
	return &AssistantHandler{
		assistant: a,
		timeout:   timeout,
	}
}

type ChatRequestDTO struct {
	Query    string `json:"query"`
	UserType string `json:"userType"`
}

type ChatResponseDTO struct {
	Response string `json:"response"`
}

type SuggestReplyRequestDTO struct {
	ProductListing string `json:"productListing"`
	BuyerQuestion  string `json:"buyerQuestion"`
}

type SuggestReplyResponseDTO struct {
	SuggestedResponse string `json:"suggestedResponse"`
}

// POST /api/v1/assistant/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ChatRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.assistant.Chat(ctx, req.Query, domain.Role(req.UserType))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ChatResponseDTO{Response: out})
}

// POST /api/v1/assistant/suggest-reply
func (h *AssistantHandler) SuggestReply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SuggestReplyRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.assistant.SuggestReply(ctx, req.ProductListing, req.BuyerQuestion)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, SuggestReplyResponseDTO{SuggestedResponse: out})
}
