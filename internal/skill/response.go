package skill

const envelopeVersion = "1.0"

type SpeechType string

const (
	PlainText SpeechType = "PlainText"
	SSML      SpeechType = "SSML"
)

// Speech is what the platform says, either plain text or SSML markup.
type Speech struct {
	Type SpeechType
	Text string
}

func Plain(text string) Speech { return Speech{Type: PlainText, Text: text} }

func Markup(ssml string) Speech { return Speech{Type: SSML, Text: ssml} }

// Kind selects whether the reply ends the session.
type Kind int

const (
	Tell Kind = iota
	Ask
)

type OutputSpeech struct {
	Type SpeechType `json:"type"`
	Text string     `json:"text,omitempty"`
	SSML string     `json:"ssml,omitempty"`
}

type Reprompt struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

type Card struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ResponseBody struct {
	OutputSpeech     OutputSpeech `json:"outputSpeech"`
	Reprompt         *Reprompt    `json:"reprompt,omitempty"`
	Card             *Card        `json:"card,omitempty"`
	ShouldEndSession bool         `json:"shouldEndSession"`
}

// Envelope is the reply sent back to the platform.
type Envelope struct {
	Version           string       `json:"version"`
	Response          ResponseBody `json:"response"`
	SessionAttributes *Attributes  `json:"sessionAttributes,omitempty"`
}

func outputSpeech(s Speech) OutputSpeech {
	if s.Type == SSML {
		return OutputSpeech{Type: SSML, SSML: s.Text}
	}
	return OutputSpeech{Type: PlainText, Text: s.Text}
}

// BuildEnvelope turns a handler's reply into the platform envelope. Tell ends
// the session, Ask keeps it open and needs a reprompt. The card is only
// included when both title and content are set. attrs, when present, are
// echoed so the platform hands them back next turn.
func BuildEnvelope(kind Kind, speech Speech, reprompt *Speech, cardTitle, cardContent string, attrs *Attributes) (*Envelope, error) {
	body := ResponseBody{
		OutputSpeech:     outputSpeech(speech),
		ShouldEndSession: kind == Tell,
	}
	if kind == Ask {
		if reprompt == nil {
			return nil, ErrMissingReprompt
		}
		body.Reprompt = &Reprompt{OutputSpeech: outputSpeech(*reprompt)}
	}
	if cardTitle != "" && cardContent != "" {
		body.Card = &Card{Type: "Simple", Title: cardTitle, Content: cardContent}
	}
	return &Envelope{
		Version:           envelopeVersion,
		Response:          body,
		SessionAttributes: attrs,
	}, nil
}

// Response builds envelopes for one session.
type Response struct {
	session *Session
}

func NewResponse(sess *Session) *Response {
	return &Response{session: sess}
}

func (r *Response) attributes() *Attributes {
	if r.session == nil {
		return nil
	}
	return r.session.Attributes
}

func (r *Response) Tell(speech Speech) (*Envelope, error) {
	return BuildEnvelope(Tell, speech, nil, "", "", r.attributes())
}

func (r *Response) TellWithCard(speech Speech, title, content string) (*Envelope, error) {
	return BuildEnvelope(Tell, speech, nil, title, content, r.attributes())
}

func (r *Response) Ask(speech, reprompt Speech) (*Envelope, error) {
	return BuildEnvelope(Ask, speech, &reprompt, "", "", r.attributes())
}

func (r *Response) AskWithCard(speech, reprompt Speech, title, content string) (*Envelope, error) {
	return BuildEnvelope(Ask, speech, &reprompt, title, content, r.attributes())
}
