package dialog

import (
	"time"
)

// Stage is the current position in the scripted dialogue state machine.
type Stage string

const (
	StageClassify      Stage = "classify"
	StageAskCity       Stage = "ask_city"
	StageAskExperience Stage = "ask_experience"
	StageAskHandle     Stage = "ask_handle"
	StageAskConsent    Stage = "ask_consent"
	StageFinalClosing  Stage = "final_profile_closing"
	StageWrap          Stage = "wrap"
	StageDone          Stage = "done"
)

// stageOrder defines the forward-only transition order. Repeat-prompt loops
// keep the stage; everything else only moves forward.
var stageOrder = map[Stage]int{
	StageClassify:      0,
	StageAskCity:       1,
	StageAskExperience: 2,
	StageAskHandle:     3,
	StageAskConsent:    4,
	StageFinalClosing:  5,
	StageWrap:          6,
	StageDone:          7,
}

// After reports whether s comes at or after other in the transition order.
func (s Stage) After(other Stage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// Profile classifies the caller.
type Profile string

const (
	ProfileUnknown      Profile = ""
	ProfileProfessional Profile = "professional"
	ProfileConsumer     Profile = "consumer"
)

// Consent is the tri-state answer to the follow-up consent question.
type Consent string

const (
	ConsentUnknown Consent = ""
	ConsentYes     Consent = "yes"
	ConsentNo      Consent = "no"
)

// Slots holds everything extracted from the caller so far.
type Slots struct {
	Profile    Profile `json:"profile,omitempty"`
	City       string  `json:"city,omitempty"`
	Experience string  `json:"experience,omitempty"`
	Handle     string  `json:"handle,omitempty"`
	Consent    Consent `json:"consent,omitempty"`
}

// CallSession is the per-call state persisted between webhook invocations.
type CallSession struct {
	ID    string `json:"id"`
	Stage Stage  `json:"stage"`
	Slots Slots  `json:"slots"`

	// AutoIndex counts scripted questions already asked; it bounds the
	// question ladder and never moves backwards.
	AutoIndex int `json:"auto_index"`

	// Retries counts consecutive clarifying reprompts in the current stage.
	// Reset on every successful transition.
	Retries int `json:"retries"`

	// Dispatched prevents duplicate downstream notifications within one call.
	Dispatched bool `json:"dispatched"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCallSession creates a fresh session at the classify stage.
func NewCallSession(id string) *CallSession {
	now := time.Now().UTC()
	return &CallSession{
		ID:        id,
		Stage:     StageClassify,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Role identifies who spoke a turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry in the append-only conversation log.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
