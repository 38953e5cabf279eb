package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/codenest/ai-chat/backend/internal/model/chat"
	"github.com/codenest/ai-chat/backend/internal/model/llm"
	chatService "github.com/codenest/ai-chat/backend/internal/service/chat"
	"github.com/codenest/ai-chat/backend/internal/service/gateway"
	"github.com/codenest/ai-chat/backend/pkg/utils"
)

// noResponseText finalizes a placeholder when the model replied without any
// extractable text. Not an error; the model may simply have nothing to say.
const noResponseText = "[No text response from model]"

// Handler drives the chat flow: user input, repository mutation, gateway
// call, repository mutation.
type Handler struct {
	chatSvc *chatService.Service
	models  llm.Store
	gateway *gateway.Gateway
}

// New creates the chat handler.
func New(chatSvc *chatService.Service, models llm.Store, gw *gateway.Gateway) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		models:  models,
		gateway: gw,
	}
}

// RegisterRoutes wires the chat surface.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleListModels)
	r.Post("/models/select", h.handleSelectModel)
	r.Get("/conversations", h.handleListConversations)
	r.Get("/conversations/{conversationID}", h.handleGetConversation)
	r.Post("/conversations/new", h.handleNewChat)
	r.Post("/conversations/select", h.handleSelectConversation)
	r.Delete("/conversations/{conversationID}", h.handleDeleteConversation)
	r.Post("/chat", h.handleSend)
}

func (h *Handler) handleListModels(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"models":        h.models.List(),
		"activeModelId": h.chatSvc.ActiveModel().ID,
	})
}

// handleSelectModel switches the active model. A current conversation
// adopts the new model and gets a system message recording the switch.
func (h *Handler) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ModelID string `json:"modelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ModelID == "" {
		utils.RespondError(w, http.StatusBadRequest, "modelId is required")
		return
	}

	model := h.chatSvc.SwitchModel(payload.ModelID)
	response := map[string]any{"activeModelId": payload.ModelID, "model": model}
	if conversation, ok := h.chatSvc.Current(); ok {
		response["conversation"] = conversation
	}
	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"conversations":         h.chatSvc.Conversations(),
		"currentConversationId": h.chatSvc.CurrentID(),
	})
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.chatSvc.Get(chi.URLParam(r, "conversationID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, conversation)
}

func (h *Handler) handleNewChat(w http.ResponseWriter, _ *http.Request) {
	h.chatSvc.NewChat()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"currentConversationId": "",
		"activeModelId":         h.chatSvc.ActiveModel().ID,
	})
}

func (h *Handler) handleSelectConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID string `json:"conversationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversation, err := h.chatSvc.SelectConversation(payload.ConversationID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, conversation)
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteConversation(chi.URLParam(r, "conversationID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"currentConversationId": h.chatSvc.CurrentID(),
	})
}

// handleSend runs one send operation: ensure a current conversation exists,
// append the user turn and a loading placeholder, call the gateway, then
// finalize the placeholder with text, the no-response fallback or an error
// description. Provider failures never surface as a 5xx here; they land in
// the conversation.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	model := h.chatSvc.ActiveModel()

	conversation, ok := h.chatSvc.Current()
	if !ok {
		conversation = h.chatSvc.CreateConversation(text, model.ID)
	}
	if h.chatSvc.HasPendingReply(conversation.ID) {
		utils.RespondError(w, http.StatusConflict, "a reply is already pending for this conversation")
		return
	}

	// History window is taken before this turn's messages go in.
	prior := conversation.Messages

	if _, err := h.chatSvc.AppendMessage(conversation.ID, chat.Message{
		Sender: chat.SenderUser,
		Text:   text,
	}); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	placeholder, err := h.chatSvc.AppendMessage(conversation.ID, chat.Message{
		Sender:    chat.SenderAssistant,
		IsLoading: true,
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	reply, sendErr := h.gateway.Send(r.Context(), model, text, prior)
	h.finalize(conversation.ID, placeholder.ID, reply, sendErr)

	updated, err := h.chatSvc.Get(conversation.ID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

// finalize writes the outcome back by the conversation and message ids
// captured at call time, so a late response still lands in its originating
// conversation even if the selection has moved on.
func (h *Handler) finalize(conversationID, messageID, reply string, sendErr error) {
	text := reply
	isError := false

	switch {
	case sendErr == nil:
	case errors.Is(sendErr, gateway.ErrNoTextResponse):
		text = noResponseText
	default:
		text = "Error: " + sendErr.Error()
		isError = true
	}

	loading := false
	if err := h.chatSvc.UpdateMessage(conversationID, messageID, chatService.MessageUpdate{
		Text:      &text,
		IsLoading: &loading,
		IsError:   &isError,
	}); err != nil {
		log.Printf("[chat] failed to finalize reply for conversation %s: %v", conversationID, err)
	}
}
