// Package skill wires the playback-control components together for a single
// running skill instance: the event bus, the resolution arbiter, the status
// tracker, the playback controller, and the vocabulary matcher. It owns the
// inbound intent handlers (generic play requests, conversational resume)
// and the subscription lifecycle.
package skill

import (
	"github.com/chordflow/encore/internal/arbiter"
	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/control"
	"github.com/chordflow/encore/internal/errors"
	"github.com/chordflow/encore/internal/logging"
	"github.com/chordflow/encore/internal/status"
	"github.com/chordflow/encore/internal/vocab"
)

// DefaultPlayTrigger is the trigger word stripped from utterances to
// recover the search phrase.
const DefaultPlayTrigger = "play"

// resumeVocab names the vocabulary consulted on conversational resume.
const resumeVocab = "converse_resume"

// Config holds required dependencies for creating a Skill.
type Config struct {
	Bus     *bus.Bus
	Arbiter *arbiter.Arbiter
	Status  *status.Tracker
	Vocab   *vocab.Matcher

	// Control is optional; without it conversational resume matches but
	// cannot drive a player.
	Control *control.Controller

	Logger *logging.Logger
}

// Skill is the top-level hub for one playback-control skill instance.
type Skill struct {
	bus     *bus.Bus
	arbiter *arbiter.Arbiter
	status  *status.Tracker
	vocab   *vocab.Matcher
	control *control.Controller
	log     *logging.Logger

	speaker     arbiter.Speaker
	hesitation  bool
	playTrigger string
	lang        string

	subs []string
}

// Option configures optional Skill behavior.
type Option func(*Skill)

// WithSpeaker sets the dialog speaker used for the hesitation prompt.
func WithSpeaker(s arbiter.Speaker) Option {
	return func(sk *Skill) { sk.speaker = s }
}

// WithHesitation enables the spoken "one moment" acknowledgement before a
// query round starts.
func WithHesitation(enabled bool) Option {
	return func(sk *Skill) { sk.hesitation = enabled }
}

// WithPlayTrigger overrides the trigger word stripped from utterances.
func WithPlayTrigger(word string) Option {
	return func(sk *Skill) {
		if word != "" {
			sk.playTrigger = word
		}
	}
}

// WithLang sets the language for vocabulary lookups.
func WithLang(lang string) Option {
	return func(sk *Skill) { sk.lang = lang }
}

// New creates a Skill. It does not subscribe until Start is called.
func New(cfg Config, opts ...Option) (*Skill, error) {
	if cfg.Bus == nil {
		return nil, errors.New("skill: Bus is required")
	}
	if cfg.Arbiter == nil {
		return nil, errors.New("skill: Arbiter is required")
	}
	if cfg.Vocab == nil {
		return nil, errors.New("skill: Vocab is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	sk := &Skill{
		bus:         cfg.Bus,
		arbiter:     cfg.Arbiter,
		status:      cfg.Status,
		vocab:       cfg.Vocab,
		control:     cfg.Control,
		log:         cfg.Logger.WithComponent("skill"),
		playTrigger: DefaultPlayTrigger,
	}
	for _, opt := range opts {
		opt(sk)
	}
	return sk, nil
}

// Start subscribes the skill's handlers and starts the components it owns.
func (s *Skill) Start() {
	s.subs = append(s.subs, s.bus.Subscribe("play.request", s.handlePlayRequest))

	s.arbiter.Start()
	if s.status != nil {
		s.status.Start()
	}
}

// Stop removes the skill's subscriptions and stops owned components.
func (s *Skill) Stop() {
	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}
	s.subs = nil

	s.arbiter.Stop()
	if s.status != nil {
		s.status.Stop()
	}
}

// handlePlayRequest services an inbound generic play intent.
func (s *Skill) handlePlayRequest(e bus.Event) {
	req, ok := e.(bus.PlayRequestEvent)
	if !ok {
		return
	}
	if err := s.Play(req.Utterance, req.Phrase, req.FromUser); err != nil {
		s.log.Warn("play request rejected", "utterance", req.Utterance, "error", err)
	}
}

// Play starts a query round for a play request. When phrase is empty it is
// recovered from the utterance by stripping the play trigger word. The
// hesitation prompt, when enabled, is spoken before the broadcast so the
// user hears an acknowledgement while providers search.
func (s *Skill) Play(utterance, phrase string, fromUser bool) error {
	if s.hesitation && s.speaker != nil {
		s.speaker.SpeakDialog("one_moment", nil)
	}

	if phrase == "" {
		phrase = s.vocab.ExtractPhrase(utterance, s.playTrigger)
	}

	s.log.Info("play request", "phrase", phrase, "from_user", fromUser)
	return s.arbiter.Query(phrase, fromUser)
}

// Converse handles the conversational turn that follows playback. When
// something has played and the utterance exactly matches the resume
// vocabulary, playback is resumed and the utterance is consumed. A missing
// resume vocabulary file is surfaced as an error rather than being treated
// as a non-match.
func (s *Skill) Converse(utterances []string) (bool, error) {
	if len(utterances) == 0 || !s.arbiter.HasPlayed() {
		return false, nil
	}

	matched, err := s.vocab.MatchExact(utterances[0], resumeVocab, s.lang)
	if err != nil {
		return false, err
	}
	if !matched {
		return false, nil
	}

	if s.control != nil {
		if err := s.control.Resume(); err != nil {
			s.log.Warn("resume failed", "error", err)
		}
	} else {
		s.bus.Publish(bus.NewControlEvent(bus.ControlResume))
	}
	return true, nil
}
