// Package providers contains the backend registry and helpers shared by the
// model-backed participant implementations.
//
// Providers self-register via init() functions using [Register]. The registry
// resolves a backend by provider name, or by matching a model name against
// each entry's [ModelMatcher].
//
// Individual providers are in subpackages:
//
//   - [github.com/deepnoodle-ai/relay/providers/openai] - OpenAI Responses API
//   - [github.com/deepnoodle-ai/relay/providers/google] - Gemini models
package providers
