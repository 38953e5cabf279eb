package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/codenest/ai-chat/backend/internal/model/chat"
	"github.com/codenest/ai-chat/backend/internal/model/llm"
)

// ErrNoTextResponse reports a 2xx response from which no text could be
// extracted. It is not a provider failure; the caller renders a neutral
// fallback instead of an error message.
var ErrNoTextResponse = errors.New("no text response from model")

const defaultTimeout = 60 * time.Second

// TokenSource supplies the bearer token for the proxy provider.
type TokenSource interface {
	AccessToken() (string, error)
}

// Gateway shapes provider-specific requests, issues a single HTTP call per
// send and normalizes the divergent response shapes into plain text.
type Gateway struct {
	client      *http.Client
	tokens      TokenSource
	hostedToken string
}

// New builds a gateway. hostedToken is the statically configured bearer for
// hosted inference endpoints; a zero timeout falls back to the default.
func New(tokens TokenSource, hostedToken string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		client:      &http.Client{Timeout: timeout},
		tokens:      tokens,
		hostedToken: hostedToken,
	}
}

// Send posts the user text to the model's endpoint and returns the reply
// text. The prior messages are bounded to the provider history window
// before shaping. A valid empty reply returns ("", nil); an unextractable
// one returns ErrNoTextResponse.
func (g *Gateway) Send(ctx context.Context, model llm.Model, userText string, prior []chat.Message) (string, error) {
	history := BoundHistory(prior)

	var payload any
	switch model.Kind {
	case llm.KindProxy:
		payload = proxyRequest{Message: userText, History: proxyHistory(history)}
	case llm.KindHosted:
		payload = hostedRequest{
			Inputs: formatPrompt(userText, fetchContext(ctx, userText)),
			Parameters: hostedParameters{
				Temperature:    defaultTemperature,
				MaxNewTokens:   defaultNPredict,
				ReturnFullText: false,
			},
		}
	default:
		payload = completionRequest{
			Prompt:      formatPrompt(userText, fetchContext(ctx, userText)),
			NPredict:    defaultNPredict,
			Temperature: defaultTemperature,
			Stop:        stopSequences,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, model.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req, model.Kind)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API server error: %d %s. Detail: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), errorDetail(respBody))
	}

	text, ok := extract(model.Kind, respBody)
	if !ok {
		log.Printf("[gateway] model %s returned an empty or unparseable response: %s", model.ID, truncateForLog(respBody))
		return "", ErrNoTextResponse
	}
	return text, nil
}

// authorize attaches the provider-appropriate bearer token. A missing or
// malformed proxy token record is a warning, not a failure; the request
// proceeds unauthenticated and the remote service is expected to reject it.
func (g *Gateway) authorize(req *http.Request, kind llm.Kind) {
	switch kind {
	case llm.KindProxy:
		token, err := g.tokens.AccessToken()
		if err != nil {
			log.Printf("[gateway] no access token for proxy request, proceeding unauthenticated: %v", err)
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case llm.KindHosted:
		if g.hostedToken == "" {
			log.Printf("[gateway] hosted inference token not configured, proceeding unauthenticated")
			return
		}
		req.Header.Set("Authorization", "Bearer "+g.hostedToken)
	}
}

func extract(kind llm.Kind, body []byte) (string, bool) {
	switch kind {
	case llm.KindProxy:
		return extractProxy(body)
	case llm.KindHosted:
		return extractHosted(body)
	default:
		return extractCompletion(body)
	}
}

// errorDetail pulls a human-readable detail out of an error body: the JSON
// error or detail field when present, else the raw body.
func errorDetail(body []byte) string {
	var parsed struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return string(body)
}

func truncateForLog(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
