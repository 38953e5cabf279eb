package llm

import "strings"

// Kind selects the request/response contract a model endpoint speaks.
// It is resolved once when the catalog is built, not re-derived per call.
type Kind string

const (
	// KindProxy is the CodeNest backend proxy: {message, history} in,
	// {reply} out, bearer token from the persisted token record.
	KindProxy Kind = "proxy"
	// KindHosted is a hosted inference endpoint: {inputs, parameters} in,
	// generated_text out.
	KindHosted Kind = "hosted"
	// KindCompletion is a llama.cpp style completion server:
	// {prompt, n_predict, temperature, stop} in, content/response/text out.
	KindCompletion Kind = "completion"
)

const (
	proxyModelID   = "codenest-gemini-proxy"
	hostedIDPrefix = "hf-"
)

// Model describes a text-generation HTTP endpoint exposed to the frontend.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind Kind   `json:"-"`
}

// KindFor maps a model identifier onto its provider kind.
func KindFor(id string) Kind {
	switch {
	case id == proxyModelID:
		return KindProxy
	case strings.HasPrefix(id, hostedIDPrefix):
		return KindHosted
	default:
		return KindCompletion
	}
}

// Seed provides the default model catalog.
func Seed() []Model {
	return []Model{
		{
			ID:   "deepseek-coder-instruct",
			Name: "Deepseek Coder (Instruct)",
			URL:  "https://timetable.rdu.edu.tr/test/ai/completion1",
		},
		{
			ID:   "llama2-7b",
			Name: "LLaMA 2 (7B)",
			URL:  "https://timetable.rdu.edu.tr/test/ai/completion",
		},
		{
			ID:   "gamma-7b",
			Name: "Gamma (7B)",
			URL:  "https://timetable.rdu.edu.tr/test/ai/completion",
		},
		{
			ID:   "hf-mistral-7b-instruct",
			Name: "Mistral 7B Instruct (HF)",
			URL:  "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.1",
		},
		{
			ID:   "codenest-gemini-proxy",
			Name: "CodeNest AI (Gemini)",
			URL:  "https://timetable.rdu.edu.tr/codenest_v2/api/ai/chat/gemini/",
		},
	}
}
