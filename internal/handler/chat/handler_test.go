package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/codenest/ai-chat/backend/internal/model/chat"
	"github.com/codenest/ai-chat/backend/internal/model/llm"
	chatservice "github.com/codenest/ai-chat/backend/internal/service/chat"
	"github.com/codenest/ai-chat/backend/internal/service/gateway"
)

type memStore struct {
	saved []chatmodel.Conversation
}

func (m *memStore) Load() ([]chatmodel.Conversation, error) { return m.saved, nil }
func (m *memStore) Save(conversations []chatmodel.Conversation) error {
	m.saved = conversations
	return nil
}

type noTokens struct{}

func (noTokens) AccessToken() (string, error) { return "test-token", nil }

// setupRouter wires a real repository and gateway against the provided
// fake provider endpoint.
func setupRouter(t *testing.T, providerURL string) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	models := llm.NewMemoryStore([]llm.Model{
		{ID: "codenest-gemini-proxy", Name: "CodeNest AI (Gemini)", URL: providerURL},
		{ID: "llama2-7b", Name: "LLaMA 2 (7B)", URL: providerURL},
	})
	chatSvc := chatservice.NewService(&memStore{}, models)
	gw := gateway.New(noTokens{}, "", 0)
	handler := New(chatSvc, models, gw)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func proxyServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, r http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeConversation(t *testing.T, resp *httptest.ResponseRecorder) chatmodel.Conversation {
	t.Helper()
	var conversation chatmodel.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conversation))
	return conversation
}

func TestSendCreatesConversationFromFirstMessage(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"Hi! How can I help?"}`)
	r, svc := setupRouter(t, server.URL)

	resp := postJSON(t, r, "/chat", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusOK, resp.Code)

	conversation := decodeConversation(t, resp)
	assert.Equal(t, "Hello", conversation.Title)
	require.Len(t, conversation.Messages, 2)

	userMsg := conversation.Messages[0]
	assert.Equal(t, chatmodel.SenderUser, userMsg.Sender)
	assert.Equal(t, "Hello", userMsg.Text)

	reply := conversation.Messages[1]
	assert.Equal(t, chatmodel.SenderAssistant, reply.Sender)
	assert.Equal(t, "Hi! How can I help?", reply.Text)
	assert.False(t, reply.IsLoading)
	assert.False(t, reply.IsError)

	// Exactly one conversation exists and it is current.
	require.Len(t, svc.Conversations(), 1)
	assert.Equal(t, conversation.ID, svc.CurrentID())
}

func TestSendReusesCurrentConversation(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"sure"}`)
	r, svc := setupRouter(t, server.URL)

	require.Equal(t, http.StatusOK, postJSON(t, r, "/chat", map[string]string{"text": "first"}).Code)
	require.Equal(t, http.StatusOK, postJSON(t, r, "/chat", map[string]string{"text": "second"}).Code)

	conversations := svc.Conversations()
	require.Len(t, conversations, 1)
	assert.Len(t, conversations[0].Messages, 4)
	assert.Equal(t, "first", conversations[0].Title)
}

func TestSendServerErrorLandsInPlaceholder(t *testing.T) {
	server := proxyServer(t, http.StatusInternalServerError, `{"error":"overloaded"}`)
	r, _ := setupRouter(t, server.URL)

	resp := postJSON(t, r, "/chat", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusOK, resp.Code)

	conversation := decodeConversation(t, resp)
	require.Len(t, conversation.Messages, 2)
	reply := conversation.Messages[1]
	assert.Equal(t, "Error: API server error: 500 Internal Server Error. Detail: overloaded", reply.Text)
	assert.True(t, reply.IsError)
	assert.False(t, reply.IsLoading)
}

func TestSendEmptyModelResponseIsNotAnError(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":""}`)
	r, _ := setupRouter(t, server.URL)

	resp := postJSON(t, r, "/chat", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusOK, resp.Code)

	conversation := decodeConversation(t, resp)
	reply := conversation.Messages[1]
	assert.Equal(t, "[No text response from model]", reply.Text)
	assert.False(t, reply.IsError)
	assert.False(t, reply.IsLoading)
}

func TestSendRejectsBlankInput(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"unused"}`)
	r, _ := setupRouter(t, server.URL)

	resp := postJSON(t, r, "/chat", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendRejectsSecondInFlightRequest(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"unused"}`)
	r, svc := setupRouter(t, server.URL)

	created := svc.CreateConversation("busy", "codenest-gemini-proxy")
	_, err := svc.AppendMessage(created.ID, chatmodel.Message{
		Sender:    chatmodel.SenderAssistant,
		IsLoading: true,
	})
	require.NoError(t, err)

	resp := postJSON(t, r, "/chat", map[string]string{"text": "another"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSwitchModelMidConversationAppendsSystemMessage(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"hi"}`)
	r, svc := setupRouter(t, server.URL)

	require.Equal(t, http.StatusOK, postJSON(t, r, "/chat", map[string]string{"text": "Hello"}).Code)

	resp := postJSON(t, r, "/models/select", map[string]string{"modelId": "llama2-7b"})
	require.Equal(t, http.StatusOK, resp.Code)

	conversation, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "llama2-7b", conversation.ModelID)

	last := conversation.Messages[len(conversation.Messages)-1]
	assert.Equal(t, chatmodel.SenderSystem, last.Sender)
	assert.Equal(t, "Switched to model: LLaMA 2 (7B)", last.Text)

	// Prior messages untouched.
	assert.Equal(t, "Hello", conversation.Messages[0].Text)
	assert.Equal(t, "hi", conversation.Messages[1].Text)
}

func TestSwitchModelWithoutConversationOnlyChangesSelection(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"hi"}`)
	r, svc := setupRouter(t, server.URL)

	resp := postJSON(t, r, "/models/select", map[string]string{"modelId": "llama2-7b"})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Empty(t, svc.CurrentID())
	assert.Equal(t, "llama2-7b", svc.ActiveModel().ID)
	assert.Empty(t, svc.Conversations())
}

func TestSelectAndDeleteConversationEndpoints(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"hi"}`)
	r, svc := setupRouter(t, server.URL)

	a := svc.CreateConversation("first", "codenest-gemini-proxy")
	b := svc.CreateConversation("second", "codenest-gemini-proxy")

	resp := postJSON(t, r, "/conversations/select", map[string]string{"conversationId": a.ID})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, a.ID, svc.CurrentID())

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+a.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, b.ID, svc.CurrentID())

	resp = postJSON(t, r, "/conversations/select", map[string]string{"conversationId": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNewChatEndpointClearsSelection(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"hi"}`)
	r, svc := setupRouter(t, server.URL)

	require.Equal(t, http.StatusOK, postJSON(t, r, "/chat", map[string]string{"text": "Hello"}).Code)
	require.NotEmpty(t, svc.CurrentID())

	req := httptest.NewRequest(http.MethodPost, "/conversations/new", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, svc.CurrentID())
	// History survives the reset.
	assert.Len(t, svc.Conversations(), 1)
}

func TestListModels(t *testing.T) {
	server := proxyServer(t, http.StatusOK, `{"reply":"hi"}`)
	r, _ := setupRouter(t, server.URL)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Models        []llm.Model `json:"models"`
		ActiveModelID string      `json:"activeModelId"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Len(t, payload.Models, 2)
	assert.Equal(t, "codenest-gemini-proxy", payload.ActiveModelID)
}
