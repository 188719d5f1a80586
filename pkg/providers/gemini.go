package providers

// Gemini is reached through its OpenAI-compatible endpoint, so it
// shares the chat-completions implementation.
func init() {
	RegisterFactory(ProviderGemini, buildChatCompletions(ProviderGemini), validateAPIKey(ProviderGemini))
}
