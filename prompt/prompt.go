// Package prompt renders the instructions handed to each medical agent.
//
// Every instruction is the shared professional-tone preamble followed by a
// role framing that embeds the medical report (or, for the team, the three
// specialist reports) verbatim. Rendering is plain concatenation: nothing is
// truncated, escaped or validated.
package prompt

import (
	"fmt"

	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// Preamble is the tone-setting text shared by every agent.
const Preamble = "You are a highly specialized medical AI agent. " +
	"Your responses should be professional, concise, and directly address the query based on provided medical information. " +
	"Do not give medical advice or diagnoses directly; instead, summarize findings or analyses."

// BuildInstruction joins the preamble and the role framing.
func BuildInstruction(preamble, framing string) string {
	return preamble + " " + framing
}

// Specialist renders the instruction for a specialist role.
func Specialist(role agenkit.Role, report string) (string, error) {
	framing, ok := specialistFraming[role]
	if !ok {
		return "", fmt.Errorf("no specialist framing for role %q", role)
	}
	return BuildInstruction(Preamble, framing+"\n\nMedical Report:\n"+report), nil
}

// SpecialistReports carries the three analyses the team synthesizes.
type SpecialistReports struct {
	Cardiologist  string
	Psychologist  string
	Pulmonologist string
}

// ReportsFrom extracts the specialist texts from a result mapping.
func ReportsFrom(results agenkit.ResultMapping) SpecialistReports {
	return SpecialistReports{
		Cardiologist:  results.Text(agenkit.Cardiologist),
		Psychologist:  results.Text(agenkit.Psychologist),
		Pulmonologist: results.Text(agenkit.Pulmonologist),
	}
}

// Combined renders the block of specialist reports embedded in the team instruction.
func (r SpecialistReports) Combined() string {
	return "Here are the reports from the specialist agents:\n\n" +
		"Cardiologist's Report:\n" + r.Cardiologist + "\n\n" +
		"Psychologist's Report:\n" + r.Psychologist + "\n\n" +
		"Pulmonologist's Report:\n" + r.Pulmonologist + "\n\n"
}

// Team renders the instruction for the multidisciplinary team.
func Team(reports SpecialistReports) string {
	return BuildInstruction(Preamble, teamFraming+"\n\n"+reports.Combined())
}
