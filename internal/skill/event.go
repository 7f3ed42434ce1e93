package skill

import "time"

type RequestType string

const (
	LaunchRequest       RequestType = "LaunchRequest"
	IntentRequest       RequestType = "IntentRequest"
	SessionEndedRequest RequestType = "SessionEndedRequest"
)

type IntentName string

const (
	RemindMeIntent       IntentName = "RemindMe"
	SetPhoneNumberIntent IntentName = "SetPhoneNumber"
	HelpIntent           IntentName = "AMAZON.HelpIntent"
	StopIntent           IntentName = "AMAZON.StopIntent"
	CancelIntent         IntentName = "AMAZON.CancelIntent"
)

// Event is the inbound request sent by the voice platform for every turn.
type Event struct {
	Version string   `json:"version,omitempty"`
	Session *Session `json:"session"`
	Request Request  `json:"request"`
}

type Session struct {
	New         bool        `json:"new"`
	SessionID   string      `json:"sessionId"`
	Application Application `json:"application"`
	User        User        `json:"user"`
	Attributes  *Attributes `json:"attributes,omitempty"`
}

type Application struct {
	ApplicationID string `json:"applicationId"`
}

type User struct {
	UserID string `json:"userId"`
}

type Request struct {
	Type      RequestType `json:"type"`
	RequestID string      `json:"requestId"`
	Timestamp time.Time   `json:"timestamp"`
	Locale    string      `json:"locale,omitempty"`
	Intent    *Intent     `json:"intent,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

type Intent struct {
	Name  IntentName      `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// unknownSlotValue is what the platform sends when it heard a slot but could
// not resolve it.
const unknownSlotValue = "?"

// spoken reports whether the slot carries a usable value.
func (s Slot) spoken() bool {
	return s.Value != "" && s.Value != unknownSlotValue
}
