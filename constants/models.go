package constants

// Models the completion endpoint accepts for extraction runs.
const (
	ModelGPT4Turbo = "gpt-4-turbo-preview"
	ModelGPT35     = "gpt-3.5-turbo"
)

// AllowedModels is the request-level model allow-list.
var AllowedModels = []string{ModelGPT4Turbo, ModelGPT35}

// IsAllowedModel reports whether name is one of AllowedModels.
func IsAllowedModel(name string) bool {
	for _, m := range AllowedModels {
		if m == name {
			return true
		}
	}
	return false
}

// Completion request defaults and bounds.
const (
	DefaultTemperature float32 = 0.3
	MinTemperature     float32 = 0.0
	MaxTemperature     float32 = 1.0

	DefaultMaxTokens = 1500
	MinMaxTokens     = 256
	MaxMaxTokens     = 4000
)
