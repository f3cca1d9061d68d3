package sequence

import "math"

// conditionNoReply gates every touch after the first: the lead has not
// replied on any channel.
const conditionNoReply = "no_reply"

// conditionVoice additionally requires a high priority score before a
// discovery call is spent on the lead.
const conditionVoice = "als_score>=85 AND no_reply"

// templateStep is one step of the growth template before channel filtering.
type templateStep struct {
	day        int
	channel    Channel
	purpose    Purpose
	contentKey string
}

// growthTemplate is the default 6-touch cadence.
var growthTemplate = []templateStep{
	{day: 1, channel: ChannelEmail, purpose: PurposeIntro, contentKey: "email_intro"},
	{day: 3, channel: ChannelSocial, purpose: PurposeConnect, contentKey: "social_connect"},
	{day: 5, channel: ChannelEmail, purpose: PurposeValueAdd, contentKey: "email_value_add"},
	{day: 8, channel: ChannelSMS, purpose: PurposeInterrupt, contentKey: "sms_interrupt"},
	{day: 12, channel: ChannelEmail, purpose: PurposeBreakup, contentKey: "email_breakup"},
	{day: 14, channel: ChannelVoice, purpose: PurposeDiscovery, contentKey: "voice_discovery"},
}

// adaptiveRules are the runtime policies emitted with every sequence. They
// are enforced by the dispatch gate, not by the planner.
var adaptiveRules = []string{
	"stop on reply",
	"pause sequence when lead is not interested",
	"never substitute a dropped channel",
}

// Plan produces the touch sequence for one target profile given the
// channels actually connected for the lead. Steps whose channel is
// unavailable are dropped entirely; surviving day offsets are not shifted.
// An empty sequence is a valid result, not an error.
func Plan(profile TargetProfile, available []Channel, aggressive bool) Sequence {
	availableSet := make(map[Channel]bool, len(available))
	for _, channel := range available {
		availableSet[channel] = true
	}

	touches := make([]Touch, 0, len(growthTemplate))
	for i, step := range growthTemplate {
		if !availableSet[step.channel] {
			continue
		}

		day := step.day
		if aggressive {
			day = compressDay(step.day)
		}

		condition := ""
		if step.channel == ChannelVoice {
			condition = conditionVoice
		} else if i > 0 {
			condition = conditionNoReply
		}

		touches = append(touches, Touch{
			Day:        day,
			Channel:    step.channel,
			Purpose:    step.purpose,
			Condition:  condition,
			SkipIf:     skipRuleForChannel[step.channel],
			ContentKey: step.contentKey,
		})
	}

	rules := make([]string, len(adaptiveRules))
	copy(rules, adaptiveRules)

	return Sequence{Touches: touches, AdaptiveRules: rules}
}

// compressDay shortens a day offset by roughly 30% for aggressive cadences,
// never below day 1. Template days are strictly increasing and rounding is
// monotonic, so compressed sequences stay non-decreasing.
func compressDay(day int) int {
	compressed := int(math.Round(float64(day) * 0.7))
	if compressed < 1 {
		return 1
	}
	return compressed
}
