package session

import (
	"fmt"

	"github.com/ojin-ai/agents-desktop/backend/internal/bot"
)

// Environment selects which backend the worker targets.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvStaging    Environment = "staging"
)

// Descriptor is the immutable input to a session: which persona to run,
// which Hume voice configuration to use, and which environment to target.
type Descriptor struct {
	PersonaID    string      `json:"persona_id"`
	HumeConfigID string      `json:"hume_config_id"`
	Environment  Environment `json:"environment"`
}

// Validate checks the descriptor before any process is spawned. A failure
// here is a validation error, never a process failure.
func (d Descriptor) Validate() error {
	if d.PersonaID == "" {
		return fmt.Errorf("persona ID is required")
	}
	if d.HumeConfigID == "" {
		return fmt.Errorf("hume config ID is required")
	}
	switch d.Environment {
	case EnvProduction, EnvStaging:
	default:
		return fmt.Errorf("environment must be %q or %q", EnvProduction, EnvStaging)
	}
	return nil
}

// botParams converts the descriptor into worker launch parameters.
func (d Descriptor) botParams() bot.Params {
	return bot.Params{
		PersonaID:    d.PersonaID,
		HumeConfigID: d.HumeConfigID,
		Environment:  string(d.Environment),
	}
}
