package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/scttfrdmn/agenkit/medteam-go/adapter/llm"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/middleware"
	"github.com/scttfrdmn/agenkit/medteam-go/prompt"
)

// ModelBuilder constructs the inference backend from the provider settings.
type ModelBuilder func(ctx context.Context, cfg llm.ProviderConfig) (llm.LLM, error)

// Config configures a Factory.
type Config struct {
	// Provider holds the backend selection. Provider.APIKey is the credential
	// checked at construction.
	Provider llm.ProviderConfig

	// Timeout bounds each invocation. Zero disables the timeout.
	Timeout time.Duration

	// Builder overrides backend construction; llm.New when nil.
	Builder ModelBuilder
}

// Factory creates agent descriptors bound to a single, shared backend.
type Factory struct {
	model llm.LLM
}

// NewFactory checks the credential and builds the backend once.
//
// A missing credential yields *agenkit.ConfigurationError before any agent
// exists; backend construction failures are wrapped in one as well.
func NewFactory(ctx context.Context, cfg Config) (*Factory, error) {
	if cfg.Provider.APIKey == "" {
		return nil, agenkit.NewConfigurationError("api_key",
			"backend credential not set; configure the provider API key in the environment or the env file")
	}

	builder := cfg.Builder
	if builder == nil {
		builder = llm.New
	}

	model, err := builder(ctx, cfg.Provider)
	if err != nil {
		return nil, agenkit.NewConfigurationError("provider", err.Error())
	}
	if cfg.Timeout > 0 {
		model = middleware.NewTimeoutLLM(model, middleware.TimeoutConfig{Timeout: cfg.Timeout})
	}

	return &Factory{model: model}, nil
}

// Model returns the shared backend.
func (f *Factory) Model() llm.LLM {
	return f.model
}

// CreateSpecialist creates the descriptor for a specialist analysing report.
func (f *Factory) CreateSpecialist(role agenkit.Role, report string) (*Descriptor, error) {
	if !role.IsSpecialist() {
		return nil, fmt.Errorf("%s is not a specialist role", role)
	}

	instruction, err := prompt.Specialist(role, report)
	if err != nil {
		return nil, err
	}
	p := profiles[role]
	return NewDescriptor(role, p.name, p.description, instruction, f.model), nil
}

// CreateSpecialists creates one descriptor per specialist role, keyed by name.
func (f *Factory) CreateSpecialists(report string) (map[string]*Descriptor, error) {
	descriptors := make(map[string]*Descriptor, 3)
	for _, role := range agenkit.SpecialistRoles() {
		d, err := f.CreateSpecialist(role, report)
		if err != nil {
			return nil, err
		}
		descriptors[d.Name()] = d
	}
	return descriptors, nil
}

// CreateTeam creates the multidisciplinary team descriptor from the three reports.
func (f *Factory) CreateTeam(reports prompt.SpecialistReports) *Descriptor {
	p := profiles[agenkit.MultidisciplinaryTeam]
	return NewDescriptor(agenkit.MultidisciplinaryTeam, p.name, p.description, prompt.Team(reports), f.model)
}
