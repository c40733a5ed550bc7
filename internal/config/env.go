package config

import "os"

// ProviderEnv describes the environment variables a cloud judge provider
// reads its credentials from (spec.md §6).
type ProviderEnv struct {
	Provider string
	// Keys are checked in order; the first non-empty value wins.
	Keys []string
	// Extra holds auxiliary settings beyond the API key, such as the Azure
	// OpenAI endpoint, keyed by env var name.
	Extra []string
}

// ProviderEnvCatalog lists every cloud judge provider's credential
// environment variables, in the order --help-cloud should print them.
var ProviderEnvCatalog = []ProviderEnv{
	{Provider: "@claude", Keys: []string{"ANTHROPIC_API_KEY"}},
	{Provider: "@openai", Keys: []string{"OPENAI_API_KEY"}},
	{Provider: "@gemini", Keys: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	{Provider: "@huggingface", Keys: []string{"HF_TOKEN", "HUGGINGFACE_TOKEN"}},
	{Provider: "@azure", Keys: []string{"AZURE_OPENAI_API_KEY"}, Extra: []string{"AZURE_OPENAI_ENDPOINT"}},
	{Provider: "@cohere", Keys: []string{"CO_API_KEY", "COHERE_API_KEY"}},
	{Provider: "@mistral", Keys: []string{"MISTRAL_API_KEY"}},
	{Provider: "@together", Keys: []string{"TOGETHER_API_KEY"}},
	{Provider: "@replicate", Keys: []string{"REPLICATE_API_TOKEN"}},
}

// LookupAPIKey returns the first non-empty value among a provider's
// candidate env vars, and the name of the var it came from.
func LookupAPIKey(provider string) (key, source string) {
	for _, pe := range ProviderEnvCatalog {
		if pe.Provider != provider {
			continue
		}
		for _, name := range pe.Keys {
			if v := os.Getenv(name); v != "" {
				return v, name
			}
		}
	}
	return "", ""
}

// LookupExtra returns the value of a provider's auxiliary env var (e.g.
// AZURE_OPENAI_ENDPOINT), or "" if unset or the provider has none.
func LookupExtra(provider, name string) string {
	for _, pe := range ProviderEnvCatalog {
		if pe.Provider != provider {
			continue
		}
		for _, extra := range pe.Extra {
			if extra == name {
				return os.Getenv(extra)
			}
		}
	}
	return ""
}
