package guide

// MeaningfulScoreChange is the score delta (in points) the prompts treat as
// a real change rather than noise.
const MeaningfulScoreChange = 15

// Config holds guide generation settings.
type Config struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	// Language is the output language the counselor reads.
	Language string `yaml:"language"`
}

// DefaultConfig returns the defaults used by the service.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.4,
		Language:    "Korean",
	}
}
