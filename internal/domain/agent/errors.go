package agent

import "errors"

// ErrQuotaExceeded indicates the LLM provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("agent quota exceeded")
