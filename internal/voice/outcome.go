// Package voice schedules retries for failed discovery-call attempts.
package voice

import "fmt"

// Outcome is the result of a dial attempt as reported by the voice
// dispatcher. The set is closed; an unrecognized outcome is a
// construction-time error, never a silent fall-through.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeBusy      Outcome = "busy"
	OutcomeNoAnswer  Outcome = "no_answer"
	OutcomeVoicemail Outcome = "voicemail"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeclined  Outcome = "declined"
)

var knownOutcomes = map[Outcome]struct{}{
	OutcomeAnswered:  {},
	OutcomeBusy:      {},
	OutcomeNoAnswer:  {},
	OutcomeVoicemail: {},
	OutcomeFailed:    {},
	OutcomeDeclined:  {},
}

// retryableOutcomes are the transient failures worth another dial.
var retryableOutcomes = map[Outcome]bool{
	OutcomeBusy:      true,
	OutcomeNoAnswer:  true,
	OutcomeVoicemail: true,
}

// ParseOutcome validates a raw outcome string from the dispatcher.
func ParseOutcome(raw string) (Outcome, error) {
	outcome := Outcome(raw)
	if _, ok := knownOutcomes[outcome]; !ok {
		return "", fmt.Errorf("unknown call outcome %q", raw)
	}
	return outcome, nil
}

// IsRetryable reports whether the outcome qualifies for another attempt.
func (o Outcome) IsRetryable() bool {
	return retryableOutcomes[o]
}
