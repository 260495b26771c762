package dialog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/pkg/ai"
	"github.com/glamhair/patglam-agent/pkg/metrics"
)

// CallMeta is the call metadata delivered with the terminal notification.
// Origin/destination are opaque and may be absent.
type CallMeta struct {
	CallID   string
	Duration string
	From     string
	To       string
}

// Brief is the structured lead summary produced exactly once per call.
type Brief struct {
	CallID   string `json:"call_id"`
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}

// SummaryGenerator is the slice of the provider manager the summarizer needs.
type SummaryGenerator interface {
	SummarizeLead(ctx context.Context, req *ai.SummaryRequest) (string, error)
}

// Summarizer reduces a finished transcript plus metadata into a lead brief.
// It never fails: downstream delivery depends on receiving some text, so the
// worst case is a degraded brief carrying the verbatim transcript.
type Summarizer struct {
	gen    SummaryGenerator
	logger *zap.Logger
}

// NewSummarizer creates a summarizer. gen may be nil; every call then takes
// the degraded path.
func NewSummarizer(gen SummaryGenerator, logger *zap.Logger) *Summarizer {
	return &Summarizer{gen: gen, logger: logger}
}

const missingField = "—"

// Summarize produces the lead brief for a finished call.
func (s *Summarizer) Summarize(ctx context.Context, meta CallMeta, turns []Turn) *Brief {
	header := renderHeader(meta)

	if len(turns) == 0 {
		return &Brief{
			CallID: meta.CallID,
			Text:   header + "\n\nSem histórico de conversa para esta ligação.",
		}
	}

	transcript := renderTranscript(turns)

	if s.gen != nil {
		body, err := s.gen.SummarizeLead(ctx, &ai.SummaryRequest{
			CallID:     meta.CallID,
			Duration:   meta.Duration,
			From:       meta.From,
			To:         meta.To,
			Transcript: transcript,
		})
		if err == nil && strings.TrimSpace(body) != "" {
			metrics.RecordSummary()
			return &Brief{CallID: meta.CallID, Text: header + "\n\n" + strings.TrimSpace(body)}
		}
		if err != nil {
			s.logger.Warn("lead summarization failed, producing degraded brief",
				zap.String("call_id", meta.CallID),
				zap.Error(err),
			)
		}
	}

	metrics.RecordSummary()
	return &Brief{
		CallID:   meta.CallID,
		Text:     header + "\n\nResumo indisponível. Transcrição literal da conversa:\n\n" + transcript,
		Degraded: true,
	}
}

// renderHeader always carries the call id and metadata; absent fields are
// rendered as a placeholder, never omitted.
func renderHeader(meta CallMeta) string {
	return "Resumo da ligação " + meta.CallID +
		"\nDuração: " + orPlaceholder(meta.Duration) +
		" | Origem: " + orPlaceholder(meta.From) +
		" | Destino: " + orPlaceholder(meta.To)
}

func renderTranscript(turns []Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch t.Role {
		case RoleAssistant:
			sb.WriteString("Pat Glam: ")
		default:
			sb.WriteString("Cliente: ")
		}
		sb.WriteString(t.Content)
	}
	return sb.String()
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return missingField
	}
	return v
}
