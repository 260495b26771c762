package dialog

import (
	"strings"
)

// YesNo is the result of a yes/no classification.
type YesNo int

const (
	AnswerUnknown YesNo = iota
	AnswerYes
	AnswerNo
)

var professionalKeywords = []string{"profiss", "cabeleireir", "salão", "salao"}
var consumerKeywords = []string{"cliente", "final"}

// affirmations and negations for pt-BR speech. Negations are checked first
// because phrases like "não quero" contain affirmation words.
var negationKeywords = []string{"não", "nao", "negativo", "depois", "nunca"}
var affirmationKeywords = []string{"sim", "claro", "pode", "quero", "certeza", "aceito", "beleza", "ok", "positivo"}

// ClassifyProfile decides whether the caller is a hair professional or an
// end consumer. DTMF digits are unambiguous and always win over speech.
func ClassifyProfile(speech, digits string) Profile {
	switch strings.TrimSpace(digits) {
	case "1":
		return ProfileProfessional
	case "2":
		return ProfileConsumer
	}

	lower := strings.ToLower(speech)
	for _, kw := range professionalKeywords {
		if strings.Contains(lower, kw) {
			return ProfileProfessional
		}
	}
	for _, kw := range consumerKeywords {
		if strings.Contains(lower, kw) {
			return ProfileConsumer
		}
	}
	return ProfileUnknown
}

// ClassifyYesNo decides whether an utterance is an affirmation or a
// negation. DTMF digits always win over speech.
func ClassifyYesNo(speech, digits string) YesNo {
	switch strings.TrimSpace(digits) {
	case "1":
		return AnswerYes
	case "2":
		return AnswerNo
	}

	lower := strings.ToLower(speech)
	if lower == "" {
		return AnswerUnknown
	}
	for _, kw := range negationKeywords {
		if strings.Contains(lower, kw) {
			return AnswerNo
		}
	}
	for _, kw := range affirmationKeywords {
		if strings.Contains(lower, kw) {
			return AnswerYes
		}
	}
	return AnswerUnknown
}

// NormalizeHandle turns a spoken Instagram handle into its written form:
// lower case, no internal whitespace, the spoken "arroba" becomes "@", and
// a leading "@" is added when the result carries none. Empty input yields
// empty output. Idempotent.
func NormalizeHandle(utterance string) string {
	s := strings.ToLower(strings.TrimSpace(utterance))
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "arroba", "@")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return ""
	}

	if !strings.HasPrefix(s, "@") && !strings.Contains(s, "@") {
		s = "@" + s
	}
	return s
}
