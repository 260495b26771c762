package dialog

// Persona rules sent as the system prompt on every generation call.
const PersonaPrompt = `Você é a Pat Glam, consultora da Glam Hair Brand. Você liga para cabeleireiras para apresentar o método de mega hair com fita adesiva e o curso da marca.
Regras:
- Fale sempre em português do Brasil, em frases curtas, como numa ligação telefônica.
- Seja calorosa e objetiva; nunca leia listas nem mencione sistemas internos.
- Uma pergunta por vez. Não invente promoções nem preços.
- Se o cliente não for profissional, agradeça e encerre com educação.`

// Greeting is the opening line spoken when the call connects.
const Greeting = "Olá, aqui é a Pat Glam da Glam Hair Brand! Estou ligando para saber se você é cabeleireira ou deseja aprender sobre nosso método de fita adesiva. Você é cabeleireira profissional ou cliente final? Se preferir, digite 1 para profissional ou 2 para cliente."

// ScriptedQuestions is the fixed question ladder for professionals, in order.
// AutoIndex indexes into this list.
var ScriptedQuestions = []string{
	"De qual cidade você fala?",
	"Há quanto tempo você trabalha como cabeleireira?",
	"Qual é o seu Instagram? Pode falar o arroba e o nome.",
	"Posso te mandar mais informações sobre o método de fita adesiva pelo seu WhatsApp?",
}

// prompts keyed by the stage that asks them.
var stagePrompts = map[Stage]string{
	StageClassify:      "Você é cabeleireira profissional ou cliente final? Digite 1 para profissional ou 2 para cliente.",
	StageAskCity:       ScriptedQuestions[0],
	StageAskExperience: ScriptedQuestions[1],
	StageAskHandle:     ScriptedQuestions[2],
	StageAskConsent:    ScriptedQuestions[3],
}

// clarifyPrompts are the variants used when the answer could not be classified.
var clarifyPrompts = map[Stage]string{
	StageClassify:   "Só para eu entender direitinho: você trabalha como cabeleireira, num salão, ou é cliente final? Pode digitar 1 para profissional ou 2 para cliente.",
	StageAskHandle:  "Pode repetir o seu Instagram, bem devagar? Por exemplo: arroba, e o nome do perfil.",
	StageAskConsent: "Posso te mandar as informações pelo WhatsApp? Pode responder sim ou não, ou digitar 1 para sim e 2 para não.",
}

// silenceReprompt is spoken when nothing was recognized at all.
const silenceReprompt = "Desculpe, não consegui te ouvir. Pode repetir, por favor?"

// Closing lines.
const (
	consumerClosing = "Que bom falar com você! No momento, o método de fita adesiva da Glam Hair Brand é voltado para cabeleireiras profissionais, mas fica de olho no nosso Instagram que sempre tem novidade para clientes também. Obrigada, até mais!"

	wrapConsentYes = "Perfeito! Vou te mandar tudo certinho pelo WhatsApp. Muito obrigada pelo seu tempo. Obrigada, até mais!"

	wrapConsentNo = "Sem problemas! Qualquer coisa é só procurar a Glam Hair Brand. Muito obrigada pelo seu tempo. Obrigada, até mais!"

	retriesExhaustedClosing = "Estou com dificuldade de te ouvir nessa ligação. Vou deixar para falar com você em outro momento. Obrigada, até mais!"

	goodbyeLine = "Obrigada, até mais!"
)

// FallbackApology is spoken when the generator fails and there is still a
// scripted question to ask.
const FallbackApology = "Desculpe, me perdi um pouquinho aqui."

// MaterialsMessage is the WhatsApp text sent after the client consents.
const MaterialsMessage = "Oi! Aqui é a Pat Glam da Glam Hair Brand. Como combinamos na ligação, seguem as informações sobre o método de mega hair com fita adesiva e o nosso curso. Qualquer dúvida é só responder por aqui!"

// PromptFor returns the scripted prompt for a stage.
func PromptFor(stage Stage) string {
	if p, ok := stagePrompts[stage]; ok {
		return p
	}
	return goodbyeLine
}

// ClarifyFor returns the clarifying variant for a stage, falling back to the
// plain prompt when no variant exists.
func ClarifyFor(stage Stage) string {
	if p, ok := clarifyPrompts[stage]; ok {
		return p
	}
	return "Desculpe, não entendi bem. " + PromptFor(stage)
}
