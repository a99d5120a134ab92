// Package agent builds the descriptors handed to the runner: a name, a
// description, a fully rendered instruction and the backend to call.
package agent

import (
	"github.com/scttfrdmn/agenkit/medteam-go/adapter/llm"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// Descriptor is an immutable agent handle. It does not call the model itself.
type Descriptor struct {
	role        agenkit.Role
	name        string
	description string
	instruction string
	model       llm.LLM
}

// NewDescriptor creates a descriptor. Most callers use a Factory instead.
func NewDescriptor(role agenkit.Role, name, description, instruction string, model llm.LLM) *Descriptor {
	return &Descriptor{
		role:        role,
		name:        name,
		description: description,
		instruction: instruction,
		model:       model,
	}
}

// Role returns the agent's role.
func (d *Descriptor) Role() agenkit.Role { return d.role }

// Name returns the agent's identifier, e.g. "Cardiologist".
func (d *Descriptor) Name() string { return d.name }

// Description returns the human-readable specialty.
func (d *Descriptor) Description() string { return d.description }

// Instruction returns the rendered prompt.
func (d *Descriptor) Instruction() string { return d.instruction }

// Model returns the backend the agent is bound to.
func (d *Descriptor) Model() llm.LLM { return d.model }

type profile struct {
	name        string
	description string
}

var profiles = map[agenkit.Role]profile{
	agenkit.Cardiologist: {
		name:        "Cardiologist",
		description: "Specializes in cardiovascular health and heart-related conditions.",
	},
	agenkit.Psychologist: {
		name:        "Psychologist",
		description: "Specializes in mental health, psychological disorders, and emotional well-being.",
	},
	agenkit.Pulmonologist: {
		name:        "Pulmonologist",
		description: "Specializes in respiratory system health and lung diseases.",
	},
	agenkit.MultidisciplinaryTeam: {
		name:        "MultidisciplinaryTeam",
		description: "Synthesizes findings from multiple medical specialists to provide a holistic diagnosis.",
	},
}
