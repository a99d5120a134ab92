package agenkit

import (
	"fmt"
	"sort"
)

// Role identifies one of the fixed agent roles of the medical team.
type Role string

const (
	Cardiologist          Role = "Cardiologist"
	Psychologist          Role = "Psychologist"
	Pulmonologist         Role = "Pulmonologist"
	MultidisciplinaryTeam Role = "MultidisciplinaryTeam"
)

// SpecialistRoles returns the three specialist roles in a fixed order.
func SpecialistRoles() []Role {
	return []Role{Cardiologist, Psychologist, Pulmonologist}
}

// IsSpecialist reports whether r is one of the three specialist roles.
func (r Role) IsSpecialist() bool {
	switch r {
	case Cardiologist, Psychologist, Pulmonologist:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// AgentResult is the outcome of one agent invocation.
//
// Text is nil when the invocation failed; it points to an empty string when
// the backend answered without any text.
type AgentResult struct {
	AgentName string
	Text      *string
	Err       error
}

// Succeeded builds a result carrying the given text.
func Succeeded(agentName, text string) AgentResult {
	return AgentResult{AgentName: agentName, Text: &text}
}

// Failed builds a result with no text.
func Failed(agentName string, err error) AgentResult {
	return AgentResult{AgentName: agentName, Err: err}
}

// OK reports whether the result carries non-empty text.
func (r AgentResult) OK() bool {
	return r.Text != nil && *r.Text != ""
}

// Content returns the text, or "" when there is none.
func (r AgentResult) Content() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

func (r AgentResult) String() string {
	switch {
	case r.Text == nil:
		return fmt.Sprintf("%s: <nil>", r.AgentName)
	case *r.Text == "":
		return fmt.Sprintf("%s: <empty>", r.AgentName)
	default:
		return fmt.Sprintf("%s: %d bytes", r.AgentName, len(*r.Text))
	}
}

// ResultMapping maps specialist names to their results.
type ResultMapping map[string]AgentResult

// Missing returns the sorted names of specialists whose result is absent,
// nil or empty. An empty return value means synthesis may proceed.
func (m ResultMapping) Missing() []string {
	var missing []string
	for _, role := range SpecialistRoles() {
		res, ok := m[role.String()]
		if !ok || !res.OK() {
			missing = append(missing, role.String())
		}
	}
	sort.Strings(missing)
	return missing
}

// Complete reports whether every specialist produced non-empty text.
func (m ResultMapping) Complete() bool {
	return len(m.Missing()) == 0
}

// Text returns the text for the given role, or "" if there is none.
func (m ResultMapping) Text(role Role) string {
	return m[role.String()].Content()
}
