package llm

import (
	"strings"
	"time"

	contractx "github.com/neuraestate/propmatch/agent/contract"
	openaix "github.com/neuraestate/propmatch/pkg/openai"
)

// Config carries the default chat-model settings plus optional per-persona
// overrides. An empty API key disables model calls entirely; the gateway then
// serves its deterministic fallback.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1200"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	SpecialistModel       string  `envconfig:"SPECIALIST_MODEL" split_words:"true"`
	ConciergeModel        string  `envconfig:"CONCIERGE_MODEL" split_words:"true"`
	SpecialistTemperature float32 `envconfig:"SPECIALIST_TEMPERATURE" split_words:"true" default:"-1"`
	ConciergeTemperature  float32 `envconfig:"CONCIERGE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// OpenAIFor resolves the model settings for one persona, applying overrides
// where configured. The scout is deterministic and never calls a model, so
// only specialist and concierge have override knobs.
func (c Config) OpenAIFor(kind contractx.PersonaKind) openaix.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch kind {
	case contractx.PersonaSpecialist:
		if v := strings.TrimSpace(c.SpecialistModel); v != "" {
			modelName = v
		}
		if c.SpecialistTemperature >= 0 {
			temp = c.SpecialistTemperature
		}
	case contractx.PersonaConcierge:
		if v := strings.TrimSpace(c.ConciergeModel); v != "" {
			modelName = v
		}
		if c.ConciergeTemperature >= 0 {
			temp = c.ConciergeTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openaix.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
	}
}
