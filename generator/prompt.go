package generator

import (
	"fmt"
	"strings"
)

const transcriptMarker = "TRANSCRIPT:\n"

// Prompt is the set of messages sent to the model.
type Prompt struct {
	System string
	User   string
}

// PromptOptions tunes the summary prompt.
type PromptOptions struct {
	// Language the minutes are written in; defaults to Brazilian Portuguese.
	Language string
	// MissingMarker is the phrase used for absent information.
	MissingMarker string
}

// BuildSummaryPrompt asks for structured minutes of transcript.
func BuildSummaryPrompt(transcript string, opts PromptOptions) Prompt {
	lang := opts.Language
	if lang == "" {
		lang = "Brazilian Portuguese"
	}
	missing := opts.MissingMarker
	if missing == "" {
		missing = "Data não especificada"
	}

	var sb strings.Builder
	sb.WriteString("You turn raw meeting transcripts into clean, structured and actionable minutes.\n")
	sb.WriteString("Output Markdown only, following these sections in order:\n\n")
	sb.WriteString("1. Header: a level-one heading with the meeting title, then date/time and participants. ")
	sb.WriteString("Write \"Not specified\" or \"Not listed\" when absent.\n")
	sb.WriteString("2. Overview: two or three sentences on the topic, its context and the objective of the meeting.\n")
	sb.WriteString("3. Key Discussion Points: grouped bullets covering debates, challenges, alternatives and disagreements. No small talk.\n")
	sb.WriteString("4. Decisions Made: each final decision in active voice with a short reason.\n")
	sb.WriteString("5. Action Items: task, owner (or \"Unassigned\"), deadline (or \"Not mentioned\"), priority High/Medium/Low.\n")
	sb.WriteString("6. AI Observations & Suggestions: items prefixed \"Observation:\" or \"Suggestion:\".\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString(fmt.Sprintf("- Write in %s, in a clear, professional and neutral tone.\n", lang))
	sb.WriteString("- Be concise. Use bullets where they help.\n")
	sb.WriteString("- Never invent information.\n")
	sb.WriteString(fmt.Sprintf("- Mark missing information explicitly (e.g. %q) and flag important ambiguities.\n", missing))
	sb.WriteString("- Do not wrap the answer in a code fence.\n")

	return Prompt{
		System: sb.String(),
		User:   transcriptMarker + transcript,
	}
}
