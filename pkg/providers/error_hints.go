package providers

import "strings"

// augmentProviderError appends setup hints to common credential
// mistakes so the log line alone is enough to fix them.
func augmentProviderError(providerName, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return msg
	}

	lower := strings.ToLower(msg)

	switch providerName {
	case ProviderGroq:
		if strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid_api_key") {
			return msg + " Hint: set DOTCHAT_PROVIDERS_GROQ_API_KEY to a key from console.groq.com."
		}
	case ProviderGemini:
		if strings.Contains(lower, "api key not valid") || strings.Contains(lower, "api_key_invalid") {
			return msg + " Hint: set DOTCHAT_PROVIDERS_GEMINI_API_KEY to a key from aistudio.google.com; the OpenAI-compatible endpoint is used."
		}
	case ProviderOpenAI:
		if strings.Contains(lower, "incorrect api key provided") {
			return msg + " Hint: provider openai expects a Platform API key (sk-...), not a ChatGPT session token."
		}
	}

	return msg
}
