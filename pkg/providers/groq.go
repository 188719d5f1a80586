package providers

func init() {
	RegisterFactory(ProviderGroq, buildChatCompletions(ProviderGroq), validateAPIKey(ProviderGroq))
}
