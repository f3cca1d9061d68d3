package dispatch

import (
	"context"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/leads"
	"github.com/Keiracom/Agency-OS-sub001/internal/seats"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
)

// Request is what a channel dispatcher needs to perform one send.
type Request struct {
	Channel      sequence.Channel
	Lead         leads.Lead
	Seat         seats.Seat
	ContentKey   string
	ScheduledFor time.Time
}

// Outcome is the dispatcher's report back.
type Outcome struct {
	Delivered   bool
	ProviderIDs []string
	Detail      string
}

// Dispatcher performs the actual send on one channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Outcome, error)
}

// Registry is the static channel-to-dispatcher mapping. Channels without a
// configured dispatcher hold a nil field; dispatching to them is a skip, not
// a runtime lookup failure.
type Registry struct {
	Email  Dispatcher
	SMS    Dispatcher
	Social Dispatcher
	Voice  Dispatcher
	Mail   Dispatcher
}

// For resolves the dispatcher for a channel. The switch is exhaustive over
// the closed channel set.
func (r Registry) For(channel sequence.Channel) (Dispatcher, bool) {
	var d Dispatcher
	switch channel {
	case sequence.ChannelEmail:
		d = r.Email
	case sequence.ChannelSMS:
		d = r.SMS
	case sequence.ChannelSocial:
		d = r.Social
	case sequence.ChannelVoice:
		d = r.Voice
	case sequence.ChannelMail:
		d = r.Mail
	default:
		return nil, false
	}
	if d == nil {
		return nil, false
	}
	return d, true
}
