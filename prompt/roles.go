package prompt

import "github.com/scttfrdmn/agenkit/medteam-go/agenkit"

var specialistFraming = map[agenkit.Role]string{
	agenkit.Cardiologist: "As a Cardiologist AI, analyze the following medical report focusing on cardiovascular aspects, " +
		"symptoms, test results, and potential implications for heart health. " +
		"Summarize your key findings and any concerns relevant to cardiology in a clear, structured format.",
	agenkit.Psychologist: "As a Psychologist AI, analyze the following medical report focusing on mental health, " +
		"behavioral patterns, psychological symptoms, and emotional well-being. " +
		"Summarize your key findings and any concerns relevant to psychology, " +
		"especially regarding panic attack disorder, in a clear, structured format.",
	agenkit.Pulmonologist: "As a Pulmonologist AI, analyze the following medical report focusing on respiratory health, " +
		"lung function, breathing difficulties, and any pulmonary conditions. " +
		"Summarize your key findings and any concerns relevant to pulmonology in a clear, structured format.",
}

const teamFraming = "As the Multidisciplinary Medical Team AI, review the following specialist reports. " +
	"Synthesize this information to provide a comprehensive and holistic diagnosis for the patient. " +
	"Identify any correlations between the findings from different specialties. " +
	"Present the final diagnosis, including any recommended next steps or areas for further investigation, " +
	"in a structured and professional medical summary format."

// Framing returns the role-specific framing text, without the embedded report.
func Framing(role agenkit.Role) (string, bool) {
	if role == agenkit.MultidisciplinaryTeam {
		return teamFraming, true
	}
	f, ok := specialistFraming[role]
	return f, ok
}
