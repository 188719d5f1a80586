package providers

func init() {
	RegisterFactory(ProviderOpenAI, buildChatCompletions(ProviderOpenAI), validateAPIKey(ProviderOpenAI))
}
