// Package sequence plans multi-channel touch sequences for campaign leads.
// Planning is pure: no storage, no I/O, deterministic for identical inputs.
package sequence

// Channel is an outreach channel. The set is closed; raw strings from
// storage or transport must pass ParseChannel.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSMS    Channel = "sms"
	ChannelSocial Channel = "social"
	ChannelVoice  Channel = "voice"
	ChannelMail   Channel = "mail"
)

var knownChannels = map[Channel]struct{}{
	ChannelEmail:  {},
	ChannelSMS:    {},
	ChannelSocial: {},
	ChannelVoice:  {},
	ChannelMail:   {},
}

// ParseChannel validates a raw channel string.
func ParseChannel(raw string) (Channel, bool) {
	channel := Channel(raw)
	_, ok := knownChannels[channel]
	return channel, ok
}

// Purpose describes what a touch is trying to accomplish.
type Purpose string

const (
	PurposeIntro     Purpose = "intro"
	PurposeConnect   Purpose = "connect"
	PurposeValueAdd  Purpose = "value_add"
	PurposeInterrupt Purpose = "interrupt"
	PurposeBreakup   Purpose = "breakup"
	PurposeDiscovery Purpose = "discovery"
)

// SkipRule is a missing-data predicate attached to a touch. When the rule
// holds for a lead's contact data the touch is silently omitted; a skip is
// never an error.
type SkipRule string

const (
	SkipNone              SkipRule = ""
	SkipMissingProfileURL SkipRule = "missing_profile_url"
	SkipMissingPhone      SkipRule = "missing_phone"
	SkipMissingAddress    SkipRule = "missing_address"
)

// skipRuleForChannel is fixed per channel.
var skipRuleForChannel = map[Channel]SkipRule{
	ChannelEmail:  SkipNone,
	ChannelSMS:    SkipMissingPhone,
	ChannelSocial: SkipMissingProfileURL,
	ChannelVoice:  SkipMissingPhone,
	ChannelMail:   SkipMissingAddress,
}

// Touch is one scheduled outreach action within a sequence.
type Touch struct {
	Day        int      `json:"day"`
	Channel    Channel  `json:"channel"`
	Purpose    Purpose  `json:"purpose"`
	Condition  string   `json:"condition,omitempty"`
	SkipIf     SkipRule `json:"skipIf,omitempty"`
	ContentKey string   `json:"contentKey"`
}

// Sequence is an ordered touch list plus human-readable runtime policies.
// Sequences are regenerated on channel-availability change, never mutated.
type Sequence struct {
	Touches       []Touch  `json:"touches"`
	AdaptiveRules []string `json:"adaptiveRules"`
}

// TargetProfile describes the audience a campaign is planned against.
type TargetProfile struct {
	Industry   string    `json:"industry"`
	Segments   []Segment `json:"segments,omitempty"`
	Persona    string    `json:"persona,omitempty"`
	CompanyMin int       `json:"companyMin,omitempty"`
	CompanyMax int       `json:"companyMax,omitempty"`
}

// Segment is one industry slice of a multi-segment targeting profile, with
// its share of the campaign's lead allocation in percent.
type Segment struct {
	Industry   string `json:"industry"`
	Allocation int    `json:"allocation"`
}
