package replies

import "testing"

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantIntent     Intent
		wantConfidence float64
		wantObjection  string
	}{
		{
			name:           "well formed",
			raw:            `{"intent": "meeting_request", "confidence": 0.92, "reasoning": "asks for a call"}`,
			wantIntent:     IntentMeetingRequest,
			wantConfidence: 0.92,
		},
		{
			name:           "markdown fenced",
			raw:            "```json\n{\"intent\": \"interested\", \"confidence\": 0.8}\n```",
			wantIntent:     IntentInterested,
			wantConfidence: 0.8,
		},
		{
			name:           "objection carried through",
			raw:            `{"intent": "not_interested", "confidence": 0.7, "objection": " pricing "}`,
			wantIntent:     IntentNotInterested,
			wantConfidence: 0.7,
			wantObjection:  "pricing",
		},
		{
			name:           "unknown intent falls back",
			raw:            `{"intent": "angry", "confidence": 0.99}`,
			wantIntent:     IntentQuestion,
			wantConfidence: 0,
		},
		{
			name:           "malformed json falls back",
			raw:            `the prospect seems interested`,
			wantIntent:     IntentQuestion,
			wantConfidence: 0,
		},
		{
			name:           "empty output falls back",
			raw:            "",
			wantIntent:     IntentQuestion,
			wantConfidence: 0,
		},
		{
			name:           "confidence clamped to unit range",
			raw:            `{"intent": "question", "confidence": 3.5}`,
			wantIntent:     IntentQuestion,
			wantConfidence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseClassification(tt.raw)
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %s, want %s", got.Intent, tt.wantIntent)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.Objection != tt.wantObjection {
				t.Errorf("objection = %q, want %q", got.Objection, tt.wantObjection)
			}
		})
	}
}

func TestParseIntent(t *testing.T) {
	for _, raw := range []string{"meeting_request", "interested", "question", "not_interested", "unsubscribe", "out_of_office", "auto_reply"} {
		if _, ok := ParseIntent(raw); !ok {
			t.Errorf("ParseIntent(%q) rejected a taxonomy member", raw)
		}
	}
	if _, ok := ParseIntent("spam"); ok {
		t.Error("ParseIntent accepted an intent outside the taxonomy")
	}
}
