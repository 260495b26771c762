package dialog

import (
	"strings"
	"time"
)

// Input is one recognized caller turn as delivered by the voice collaborator.
type Input struct {
	Speech string
	Digits string
	// Confidence is advisory only; control flow never branches on it.
	Confidence float64
}

// Empty reports whether nothing was recognized at all.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Speech) == "" && strings.TrimSpace(in.Digits) == ""
}

// Text renders the turn for the conversation log and generator prompts.
func (in Input) Text() string {
	speech := strings.TrimSpace(in.Speech)
	digits := strings.TrimSpace(in.Digits)
	switch {
	case speech != "" && digits != "":
		return speech + " (digitou " + digits + ")"
	case digits != "":
		return "(digitou " + digits + ")"
	default:
		return speech
	}
}

// Outcome is what the planner decided for one turn.
type Outcome struct {
	Reply   string
	EndCall bool
}

// Planner is the deterministic stage-table turn planner. It has no I/O:
// it mutates the session in place and returns the reply, and the caller
// persists the session and appends the conversation log.
type Planner struct {
	maxClarifyTries int
}

// NewPlanner creates a planner with a bounded clarify-reprompt loop.
func NewPlanner(maxClarifyTries int) *Planner {
	if maxClarifyTries <= 0 {
		maxClarifyTries = 3
	}
	return &Planner{maxClarifyTries: maxClarifyTries}
}

// Advance runs one turn of the state machine.
func (p *Planner) Advance(s *CallSession, in Input) Outcome {
	s.UpdatedAt = time.Now().UTC()

	// Finished calls stay finished: a late or duplicated turn webhook gets a
	// goodbye and a hangup, even when nothing was heard.
	if s.Stage.After(StageFinalClosing) {
		s.Stage = StageDone
		return Outcome{Reply: goodbyeLine, EndCall: true}
	}

	if in.Empty() {
		// Nothing heard: reprompt the current stage, touch nothing else.
		return Outcome{Reply: silenceReprompt + " " + PromptFor(s.Stage)}
	}

	switch s.Stage {
	case StageClassify:
		return p.classify(s, in)
	case StageAskCity:
		return p.captureText(s, in, func(text string) { s.Slots.City = text }, StageAskExperience)
	case StageAskExperience:
		return p.captureText(s, in, func(text string) { s.Slots.Experience = text }, StageAskHandle)
	case StageAskHandle:
		return p.captureHandle(s, in)
	case StageAskConsent:
		return p.consent(s, in)
	default:
		// Terminal stages: the call leg is over, say goodbye and hang up.
		s.Stage = StageDone
		return Outcome{Reply: goodbyeLine, EndCall: true}
	}
}

func (p *Planner) classify(s *CallSession, in Input) Outcome {
	switch ClassifyProfile(in.Speech, in.Digits) {
	case ProfileProfessional:
		s.Slots.Profile = ProfileProfessional
		s.Retries = 0
		s.Stage = StageAskCity
		s.AutoIndex = 1
		return Outcome{Reply: "Que ótimo! " + PromptFor(StageAskCity)}
	case ProfileConsumer:
		// Professionals-only gating is a hard business rule: the consumer
		// branch is terminal after one explanatory message.
		s.Slots.Profile = ProfileConsumer
		s.Retries = 0
		s.Stage = StageFinalClosing
		return Outcome{Reply: consumerClosing, EndCall: true}
	default:
		return p.clarify(s)
	}
}

func (p *Planner) captureText(s *CallSession, in Input, store func(string), next Stage) Outcome {
	text := strings.TrimSpace(in.Speech)
	if text == "" {
		return p.clarify(s)
	}
	store(text)
	s.Retries = 0
	s.Stage = next
	s.AutoIndex++
	return Outcome{Reply: PromptFor(next)}
}

func (p *Planner) captureHandle(s *CallSession, in Input) Outcome {
	handle := NormalizeHandle(in.Speech)
	if handle == "" {
		return p.clarify(s)
	}
	s.Slots.Handle = handle
	s.Retries = 0
	s.Stage = StageAskConsent
	s.AutoIndex++
	return Outcome{Reply: PromptFor(StageAskConsent)}
}

func (p *Planner) consent(s *CallSession, in Input) Outcome {
	switch ClassifyYesNo(in.Speech, in.Digits) {
	case AnswerYes:
		s.Slots.Consent = ConsentYes
		s.Retries = 0
		s.Stage = StageWrap
		return Outcome{Reply: wrapConsentYes, EndCall: true}
	case AnswerNo:
		s.Slots.Consent = ConsentNo
		s.Retries = 0
		s.Stage = StageWrap
		return Outcome{Reply: wrapConsentNo, EndCall: true}
	default:
		return p.clarify(s)
	}
}

// clarify re-emits the current stage's prompt with a clarifying variant.
// The stage and AutoIndex stay put; only the retry counter moves. After the
// cap the call is closed politely instead of looping forever on a noisy line.
func (p *Planner) clarify(s *CallSession) Outcome {
	s.Retries++
	if s.Retries >= p.maxClarifyTries {
		s.Stage = StageWrap
		return Outcome{Reply: retriesExhaustedClosing, EndCall: true}
	}
	return Outcome{Reply: ClarifyFor(s.Stage)}
}
