package gateway

import (
	"encoding/json"
	"strings"

	"github.com/codenest/ai-chat/backend/internal/model/chat"
)

// Generation defaults for the completion and hosted providers.
const (
	defaultNPredict    = 512
	defaultTemperature = 0.7
	historyLimit       = 10
)

// stopSequences terminate completion-style generation at turn boundaries.
var stopSequences = []string{"\n[Question]", "\nUser:", "\nSystem:", "[/INST]", "<|user|>", "<|assistant|>"}

// proxyTurn is one prior turn in the proxy provider's history encoding.
type proxyTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type proxyRequest struct {
	Message string      `json:"message"`
	History []proxyTurn `json:"history"`
}

type hostedParameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hostedRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters hostedParameters `json:"parameters"`
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop"`
}

// BoundHistory trims a message sequence to the provider history window:
// the last ten non-system, non-error messages in chronological order.
// Pending placeholders never qualify; they carry no text yet.
func BoundHistory(messages []chat.Message) []chat.Message {
	filtered := make([]chat.Message, 0, len(messages))
	for _, m := range messages {
		if m.Sender == chat.SenderSystem || m.IsError || m.IsLoading {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > historyLimit {
		filtered = filtered[len(filtered)-historyLimit:]
	}
	return filtered
}

// proxyHistory maps bounded history onto the proxy wire roles: the model
// side of the conversation is "model", everything else is "user".
func proxyHistory(history []chat.Message) []proxyTurn {
	turns := make([]proxyTurn, 0, len(history))
	for _, m := range history {
		role := "model"
		if m.Sender == chat.SenderUser {
			role = "user"
		}
		turns = append(turns, proxyTurn{Role: role, Text: m.Text})
	}
	return turns
}

// extractProxy pulls the reply text from a proxy response body.
func extractProxy(body []byte) (string, bool) {
	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	text := strings.TrimSpace(resp.Reply)
	return text, text != ""
}

// extractHosted pulls generated text from a hosted inference response,
// which arrives either as an array of results or a bare object.
func extractHosted(body []byte) (string, bool) {
	type hostedResult struct {
		GeneratedText string `json:"generated_text"`
	}

	var list []hostedResult
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", false
		}
		text := strings.TrimSpace(list[0].GeneratedText)
		return text, text != ""
	}

	var single hostedResult
	if err := json.Unmarshal(body, &single); err != nil {
		return "", false
	}
	text := strings.TrimSpace(single.GeneratedText)
	return text, text != ""
}

// extractCompletion pulls text from a completion response, trying the
// content, response and text fields in order. An empty content together
// with stopped_eos is a valid empty reply, distinct from no text at all.
func extractCompletion(body []byte) (string, bool) {
	var resp struct {
		Content    *string `json:"content"`
		Response   string  `json:"response"`
		Text       string  `json:"text"`
		StoppedEOS bool    `json:"stopped_eos"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}

	if resp.Content != nil {
		if text := strings.TrimSpace(*resp.Content); text != "" {
			return text, true
		}
	}
	if text := strings.TrimSpace(resp.Response); text != "" {
		return text, true
	}
	if text := strings.TrimSpace(resp.Text); text != "" {
		return text, true
	}
	if resp.Content != nil && *resp.Content == "" && resp.StoppedEOS {
		// The model stopped on an end-of-sequence marker without output.
		return "", true
	}
	return "", false
}
