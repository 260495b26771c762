package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/pkg/ai"
)

type fakeSummaryGen struct {
	body string
	err  error
	req  *ai.SummaryRequest
}

func (f *fakeSummaryGen) SummarizeLead(_ context.Context, req *ai.SummaryRequest) (string, error) {
	f.req = req
	return f.body, f.err
}

func sampleTurns() []Turn {
	return []Turn{
		{Role: RoleAssistant, Content: "Olá, aqui é a Pat Glam!"},
		{Role: RoleUser, Content: "Oi, sou cabeleireira"},
		{Role: RoleAssistant, Content: "De qual cidade você fala?"},
		{Role: RoleUser, Content: "Campinas"},
	}
}

func TestSummarizeWithGenerator(t *testing.T) {
	gen := &fakeSummaryGen{body: "Cliente profissional de Campinas, interessada no curso."}
	s := NewSummarizer(gen, zap.NewNop())

	meta := CallMeta{CallID: "CA123", Duration: "95", From: "+5511999990000", To: "+5519888880000"}
	brief := s.Summarize(context.Background(), meta, sampleTurns())

	if brief.Degraded {
		t.Fatal("brief should not be degraded when the generator succeeds")
	}
	if brief.CallID != "CA123" {
		t.Fatalf("call id = %q", brief.CallID)
	}
	if !strings.Contains(brief.Text, "Resumo da ligação CA123") {
		t.Fatalf("header missing: %q", brief.Text)
	}
	if !strings.Contains(brief.Text, gen.body) {
		t.Fatalf("generated body missing: %q", brief.Text)
	}
	if gen.req == nil || !strings.Contains(gen.req.Transcript, "Cliente: Campinas") {
		t.Fatal("generator should receive the rendered transcript")
	}
}

func TestSummarizeDegradedOnGeneratorFailure(t *testing.T) {
	gen := &fakeSummaryGen{err: errors.New("provider down")}
	s := NewSummarizer(gen, zap.NewNop())

	meta := CallMeta{CallID: "CA124"}
	brief := s.Summarize(context.Background(), meta, sampleTurns())

	if !brief.Degraded {
		t.Fatal("brief should be degraded when the generator fails")
	}
	if !strings.Contains(brief.Text, "Pat Glam: Olá, aqui é a Pat Glam!") {
		t.Fatalf("verbatim transcript missing: %q", brief.Text)
	}
	if !strings.Contains(brief.Text, "Cliente: Campinas") {
		t.Fatalf("verbatim transcript missing: %q", brief.Text)
	}
}

func TestSummarizeDegradedIsByteStable(t *testing.T) {
	s := NewSummarizer(nil, zap.NewNop())
	meta := CallMeta{CallID: "CA125", Duration: "40"}
	turns := sampleTurns()

	first := s.Summarize(context.Background(), meta, turns)
	second := s.Summarize(context.Background(), meta, turns)
	if first.Text != second.Text {
		t.Fatal("degraded brief must be identical across runs for the same input")
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	gen := &fakeSummaryGen{body: "should not be called"}
	s := NewSummarizer(gen, zap.NewNop())

	brief := s.Summarize(context.Background(), CallMeta{CallID: "CA126"}, nil)
	if gen.req != nil {
		t.Fatal("empty transcript must not reach the generator")
	}
	if !strings.Contains(brief.Text, "Sem histórico de conversa") {
		t.Fatalf("text = %q", brief.Text)
	}
}

func TestSummarizeHeaderPlaceholders(t *testing.T) {
	s := NewSummarizer(nil, zap.NewNop())
	brief := s.Summarize(context.Background(), CallMeta{CallID: "CA127"}, sampleTurns())

	if !strings.Contains(brief.Text, "Duração: "+missingField) {
		t.Fatalf("missing duration placeholder: %q", brief.Text)
	}
	if !strings.Contains(brief.Text, "Origem: "+missingField) {
		t.Fatalf("missing origin placeholder: %q", brief.Text)
	}
}
