// Package llm is the text-generation contract used by the conversation graph.
//
// A Client turns a Request (system instruction, ordered history, optional JSON
// schema) into a Response. Two backends are provided:
//
//   - NewOpenAI: the OpenAI Responses API via github.com/openai/openai-go
//   - NewGemini: the Gemini API via google.golang.org/genai
//
// Backends translate transport failures into fault.HTTPError so WithRetry can
// tell transient failures from permanent ones. MockClient and ClientFunc serve
// tests.
package llm
