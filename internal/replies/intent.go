// Package replies classifies inbound replies and owns all transitions of
// lead status and thread outcome. Nothing else in the system writes those
// fields.
package replies

// Intent is the classified purpose of an inbound reply. The taxonomy is
// closed; classifier output outside this set falls back to IntentQuestion.
type Intent string

const (
	IntentMeetingRequest Intent = "meeting_request"
	IntentInterested     Intent = "interested"
	IntentQuestion       Intent = "question"
	IntentNotInterested  Intent = "not_interested"
	IntentUnsubscribe    Intent = "unsubscribe"
	IntentOutOfOffice    Intent = "out_of_office"
	IntentAutoReply      Intent = "auto_reply"
)

var knownIntents = map[Intent]struct{}{
	IntentMeetingRequest: {},
	IntentInterested:     {},
	IntentQuestion:       {},
	IntentNotInterested:  {},
	IntentUnsubscribe:    {},
	IntentOutOfOffice:    {},
	IntentAutoReply:      {},
}

// ParseIntent validates a raw intent string.
func ParseIntent(raw string) (Intent, bool) {
	intent := Intent(raw)
	_, ok := knownIntents[intent]
	return intent, ok
}

// Substantive reports whether the reply came from the prospect actually
// engaging. Out-of-office and auto replies are mailbox noise: they bump the
// reply counter but must not satisfy no_reply conditions or stop a sequence.
func (i Intent) Substantive() bool {
	return i != IntentOutOfOffice && i != IntentAutoReply
}
