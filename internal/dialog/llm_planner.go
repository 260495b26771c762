package dialog

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/pkg/ai"
	"github.com/glamhair/patglam-agent/pkg/metrics"
)

// Generator is the slice of the provider manager the LLM planner needs.
type Generator interface {
	GenerateTurn(ctx context.Context, req *ai.TurnRequest) (string, error)
	RewriteLine(ctx context.Context, req *ai.RewriteRequest) (string, error)
}

// QuestionMatch selects how the "asked" field is matched against the
// offered scripted question before the ladder index advances.
type QuestionMatch string

const (
	MatchExact QuestionMatch = "exact"
	MatchLoose QuestionMatch = "loose"
)

// LLMPlanner is the mixed-initiative turn planner. The generator drives the
// wording; the ladder of scripted questions and the professional-only gate
// stay under machine control. Every failure downgrades to the deterministic
// planner for that turn only.
type LLMPlanner struct {
	gen      Generator
	fallback *Planner
	match    QuestionMatch
	logger   *zap.Logger
}

// NewLLMPlanner creates an LLM-assisted planner over a deterministic fallback.
func NewLLMPlanner(gen Generator, fallback *Planner, match QuestionMatch, logger *zap.Logger) *LLMPlanner {
	if match != MatchExact {
		match = MatchLoose
	}
	return &LLMPlanner{gen: gen, fallback: fallback, match: match, logger: logger}
}

// turnReply is the structured response format expected from the generator.
type turnReply struct {
	Reply   string            `json:"reply"`
	Slots   map[string]string `json:"slots"`
	Asked   string            `json:"asked"`
	EndCall bool              `json:"end_call"`
}

// stage the ladder is at for a given count of asked questions.
var ladderStages = []Stage{StageAskCity, StageAskExperience, StageAskHandle, StageAskConsent}

// Advance runs one mixed-initiative turn.
func (p *LLMPlanner) Advance(ctx context.Context, s *CallSession, in Input, history []ai.Message) Outcome {
	// The profile gate is a hard business rule, never delegated to the model.
	// Terminal stages are equally off limits: a late or duplicated webhook on
	// a finished call must say goodbye and hang up, whatever the model thinks.
	if s.Stage == StageClassify || s.Stage.After(StageFinalClosing) || p.gen == nil {
		return p.fallback.Advance(s, in)
	}

	if in.Empty() {
		return p.fallback.Advance(s, in)
	}

	req := &ai.TurnRequest{
		Persona:      PersonaPrompt,
		Slots:        slotMap(s),
		NextQuestion: p.nextQuestion(s),
		Utterance:    in.Text(),
		History:      history,
	}

	raw, err := p.gen.GenerateTurn(ctx, req)
	if err != nil {
		p.logger.Warn("turn generation failed, using scripted planner",
			zap.String("call_id", s.ID),
			zap.Error(err),
		)
		metrics.RecordPlannerFallback()
		return p.fallback.Advance(s, in)
	}

	reply, ok := parseTurnReply(raw)
	if !ok {
		// One stricter retry, then a lenient extraction of whatever came back.
		req.Strict = true
		raw, err = p.gen.GenerateTurn(ctx, req)
		if err == nil {
			reply, ok = parseTurnReply(raw)
		}
	}
	if !ok {
		return p.staticRecovery(ctx, s)
	}

	p.mergeSlots(s, reply.Slots)
	p.advanceLadder(s, reply.Asked, req.NextQuestion)

	if reply.EndCall {
		if StageWrap.After(s.Stage) {
			s.Stage = StageWrap
		}
		return Outcome{Reply: reply.Reply, EndCall: true}
	}
	return Outcome{Reply: reply.Reply}
}

// staticRecovery apologizes in persona and asks the next scripted question.
// The call is not marked as ended.
func (p *LLMPlanner) staticRecovery(ctx context.Context, s *CallSession) Outcome {
	metrics.RecordPlannerFallback()

	line := FallbackApology
	next := p.nextQuestion(s)
	if next != "" {
		line = line + " " + next
		p.bumpLadder(s)
	} else {
		line = line + " " + goodbyeLine
	}

	// Tone-only rewrite is best effort; the static line is already safe.
	if rewritten, err := p.gen.RewriteLine(ctx, &ai.RewriteRequest{Persona: PersonaPrompt, Line: line}); err == nil {
		if trimmed := strings.TrimSpace(rewritten); trimmed != "" {
			line = trimmed
		}
	}

	return Outcome{Reply: line}
}

func (p *LLMPlanner) nextQuestion(s *CallSession) string {
	if s.AutoIndex < len(ScriptedQuestions) {
		return ScriptedQuestions[s.AutoIndex]
	}
	return ""
}

// advanceLadder moves AutoIndex only when the generator actually asked the
// question it was offered, so a generator that ignores the script cannot
// drift the index.
func (p *LLMPlanner) advanceLadder(s *CallSession, asked, offered string) {
	if offered == "" || asked == "" {
		return
	}
	matched := false
	switch p.match {
	case MatchExact:
		matched = asked == offered
	default:
		matched = looseMatch(asked, offered)
	}
	if matched {
		p.bumpLadder(s)
	}
}

func (p *LLMPlanner) bumpLadder(s *CallSession) {
	if s.AutoIndex >= len(ScriptedQuestions) {
		return
	}
	s.AutoIndex++
	// Keep the stage aligned with the question now on the table; it only
	// ever moves forward.
	next := ladderStages[s.AutoIndex-1]
	if next.After(s.Stage) {
		s.Stage = next
	}
}

// mergeSlots writes only non-empty extracted values into the session.
func (p *LLMPlanner) mergeSlots(s *CallSession, updates map[string]string) {
	for key, value := range updates {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch key {
		case "city":
			s.Slots.City = value
		case "experience":
			s.Slots.Experience = value
		case "handle":
			// Handles are normalized regardless of which path produced them.
			if h := NormalizeHandle(value); h != "" {
				s.Slots.Handle = h
			}
		case "consent":
			switch strings.ToLower(value) {
			case "yes", "sim", "true", "1":
				s.Slots.Consent = ConsentYes
			case "no", "não", "nao", "false", "2":
				s.Slots.Consent = ConsentNo
			}
		}
	}
}

// parseTurnReply decodes the structured response, tolerating code fences and
// surrounding prose by extracting the outermost JSON object.
func parseTurnReply(raw string) (*turnReply, bool) {
	candidate := strings.TrimSpace(raw)

	var reply turnReply
	if err := json.Unmarshal([]byte(candidate), &reply); err == nil && reply.Reply != "" {
		return &reply, true
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &reply); err != nil || reply.Reply == "" {
		return nil, false
	}
	return &reply, true
}

func slotMap(s *CallSession) map[string]string {
	return map[string]string{
		"profile":    string(s.Slots.Profile),
		"city":       s.Slots.City,
		"experience": s.Slots.Experience,
		"handle":     s.Slots.Handle,
		"consent":    string(s.Slots.Consent),
	}
}

// looseMatch tolerates the model paraphrasing the scripted question.
// Both sides are lowercased and stripped of punctuation before comparing;
// a containment either way counts as a match.
func looseMatch(asked, offered string) bool {
	a := normalizeQuestion(asked)
	o := normalizeQuestion(offered)
	if a == "" || o == "" {
		return false
	}
	return a == o || strings.Contains(a, o) || strings.Contains(o, a)
}

func normalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	var b strings.Builder
	for _, r := range q {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r > 127:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
