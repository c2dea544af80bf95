package rag

import (
	"errors"
	"strings"
)

// Substitution markers every prompt template must contain.
const (
	MarkerSummaries = "{summaries}"
	MarkerQuestion  = "{question}"
)

// DefaultTemplate is the built-in prompt used when no custom template is
// configured or when a custom template fails validation.
const DefaultTemplate = MarkerSummaries + "\n\nPlease reply to the question using only the text above.\nQuestion: " + MarkerQuestion + "\nAnswer:"

// ErrPromptValidation indicates a custom template is missing a required
// substitution marker. Recoverable: the orchestrator reverts to
// DefaultTemplate and surfaces a warning instead of failing the answer.
var ErrPromptValidation = errors.New("prompt template missing required marker")

// ValidateTemplate checks that a template carries both substitution markers.
func ValidateTemplate(template string) error {
	var missing []string
	if !strings.Contains(template, MarkerSummaries) {
		missing = append(missing, MarkerSummaries)
	}
	if !strings.Contains(template, MarkerQuestion) {
		missing = append(missing, MarkerQuestion)
	}
	if len(missing) > 0 {
		return errors.Join(ErrPromptValidation, errors.New("missing "+strings.Join(missing, " and ")))
	}
	return nil
}

// renderPrompt substitutes the retrieved context and question into template.
// An invalid custom template falls back to DefaultTemplate; the returned
// warning is non-empty in that case and must be surfaced to the caller.
func renderPrompt(template, contextText, question string) (prompt, warning string) {
	if template == "" {
		template = DefaultTemplate
	} else if err := ValidateTemplate(template); err != nil {
		warning = "custom prompt template is invalid (" + err.Error() + "), using the default template"
		template = DefaultTemplate
	}

	prompt = strings.ReplaceAll(template, MarkerSummaries, contextText)
	prompt = strings.ReplaceAll(prompt, MarkerQuestion, question)
	return prompt, warning
}
