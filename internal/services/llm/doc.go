// Package llm provides an OpenRouter chat client for episode analysis.
//
// Complete sends a full conversation (system prompt, episode prompt, and any
// repair turns) and returns the raw JSON content of the reply. The client asks
// for a json_object response format at temperature 0.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, network timeouts, and empty
// content with exponential backoff, honouring Retry-After. Once attempts are
// exhausted the error carries services.ErrRateLimited (HTTP 429) or
// services.ErrServiceUnavailable. Rejected credentials map to
// services.ErrConfiguration. Context cancellation aborts retries immediately
// and is returned untagged.
//
// DecodeJSON tolerates code fences and prose around the JSON object.
package llm
