// Package bus defines the event bus and event types that connect the
// arbitration core to provider components, the presentation layer, and the
// playback backend without direct dependencies.
package bus

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "play.query", "status.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Play Request Events
// -----------------------------------------------------------------------------

// PlayRequestEvent is emitted when a user issues a generic "play X" request.
// Phrase holds the already-extracted search phrase; FromUser marks requests
// attributable to an authenticated/foreground requester, which gates the
// spoken "no match" notice.
type PlayRequestEvent struct {
	baseEvent
	Utterance string // Raw utterance, for diagnostics
	Phrase    string // Extracted search phrase
	FromUser  bool   // Whether a user-visible notice is warranted on no match
}

// NewPlayRequestEvent creates a PlayRequestEvent.
func NewPlayRequestEvent(utterance, phrase string, fromUser bool) PlayRequestEvent {
	return PlayRequestEvent{
		baseEvent: newBaseEvent("play.request"),
		Utterance: utterance,
		Phrase:    phrase,
		FromUser:  fromUser,
	}
}

// QueryEvent is the broadcast request for bids. Every loaded provider
// receives it and may answer with a BidEvent or SearchingEvent.
type QueryEvent struct {
	baseEvent
	Phrase string // Search phrase identifying the query session
}

// NewQueryEvent creates a QueryEvent.
func NewQueryEvent(phrase string) QueryEvent {
	return QueryEvent{
		baseEvent: newBaseEvent("play.query"),
		Phrase:    phrase,
	}
}

// -----------------------------------------------------------------------------
// Provider Reply Events
// -----------------------------------------------------------------------------

// BidEvent is a provider's final, confidence-scored answer to a QueryEvent.
// Bid and extension messages are distinct event types rather than one shape
// distinguished by key presence.
type BidEvent struct {
	baseEvent
	Phrase       string         // Session the bid belongs to
	Provider     string         // Provider (skill) identifier
	Confidence   float64        // 0.0-1.0 expected, not enforced
	CallbackData map[string]any // Opaque payload handed back on dispatch
}

// NewBidEvent creates a BidEvent.
func NewBidEvent(phrase, provider string, confidence float64, callbackData map[string]any) BidEvent {
	return BidEvent{
		baseEvent:    newBaseEvent("play.query.bid"),
		Phrase:       phrase,
		Provider:     provider,
		Confidence:   confidence,
		CallbackData: callbackData,
	}
}

// SearchingEvent signals that a provider is still searching (true) or has
// given up without a bid (false). Start/stop pairs are not required to
// balance: a stop without a prior start is accepted.
type SearchingEvent struct {
	baseEvent
	Phrase    string // Session the signal belongs to
	Provider  string // Provider (skill) identifier
	Searching bool   // true extends the collection window
}

// NewSearchingEvent creates a SearchingEvent.
func NewSearchingEvent(phrase, provider string, searching bool) SearchingEvent {
	return SearchingEvent{
		baseEvent: newBaseEvent("play.query.searching"),
		Phrase:    phrase,
		Provider:  provider,
		Searching: searching,
	}
}

// -----------------------------------------------------------------------------
// Resolution Events
// -----------------------------------------------------------------------------

// PlayStartEvent is the exactly-once dispatch to the winning provider.
type PlayStartEvent struct {
	baseEvent
	Provider     string         // Winning provider identifier
	Phrase       string         // Search phrase the provider bid on
	CallbackData map[string]any // Winner's opaque payload, if any
}

// NewPlayStartEvent creates a PlayStartEvent.
func NewPlayStartEvent(provider, phrase string, callbackData map[string]any) PlayStartEvent {
	return PlayStartEvent{
		baseEvent:    newBaseEvent("play.start"),
		Provider:     provider,
		Phrase:       phrase,
		CallbackData: callbackData,
	}
}

// NoMatchEvent reports the defined terminal outcome of a query round that
// collected no bids. It is not an error.
type NoMatchEvent struct {
	baseEvent
	Phrase   string // Phrase nobody bid on
	Notified bool   // Whether the user was spoken to about it
}

// NewNoMatchEvent creates a NoMatchEvent.
func NewNoMatchEvent(phrase string, notified bool) NoMatchEvent {
	return NoMatchEvent{
		baseEvent: newBaseEvent("play.no_match"),
		Phrase:    phrase,
		Notified:  notified,
	}
}

// SurfaceEvent triggers the generic presentation surface. It is emitted on
// dispatch unless the winning bid declares its own surface in callback data.
type SurfaceEvent struct {
	baseEvent
	Page string // Surface page to show
}

// NewSurfaceEvent creates a SurfaceEvent.
func NewSurfaceEvent(page string) SurfaceEvent {
	return SurfaceEvent{
		baseEvent: newBaseEvent("surface.show"),
		Page:      page,
	}
}

// -----------------------------------------------------------------------------
// Status Events
// -----------------------------------------------------------------------------

// StatusEvent carries track metadata from whichever provider is playing.
// Any subset of the tracked fields may be present.
type StatusEvent struct {
	baseEvent
	Fields map[string]string // Subset of {track, artist, album, image}
}

// NewStatusEvent creates a StatusEvent.
func NewStatusEvent(fields map[string]string) StatusEvent {
	return StatusEvent{
		baseEvent: newBaseEvent("play.status"),
		Fields:    fields,
	}
}

// StatusChangedEvent is emitted only when at least one tracked field's value
// differs from its previous value.
type StatusChangedEvent struct {
	baseEvent
	Track  string
	Artist string
	Album  string
	Image  string
}

// NewStatusChangedEvent creates a StatusChangedEvent.
func NewStatusChangedEvent(track, artist, album, image string) StatusChangedEvent {
	return StatusChangedEvent{
		baseEvent: newBaseEvent("status.changed"),
		Track:     track,
		Artist:    artist,
		Album:     album,
		Image:     image,
	}
}

// -----------------------------------------------------------------------------
// Playback Control Events
// -----------------------------------------------------------------------------

// ControlAction identifies a playback control action.
type ControlAction string

const (
	ControlNext   ControlAction = "next"
	ControlPrev   ControlAction = "prev"
	ControlPause  ControlAction = "pause"
	ControlResume ControlAction = "resume"
	ControlStop   ControlAction = "stop"
)

// ControlEvent is the outbound confirmation forwarded 1:1 from an inbound
// control intent after the player has been driven.
type ControlEvent struct {
	baseEvent
	Action ControlAction // Control action that was performed
}

// NewControlEvent creates a ControlEvent.
func NewControlEvent(action ControlAction) ControlEvent {
	return ControlEvent{
		baseEvent: newBaseEvent("playback_control." + string(action)),
		Action:    action,
	}
}
