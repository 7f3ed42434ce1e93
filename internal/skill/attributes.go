package skill

// SlotKey names one of the slots the skill carries across turns.
type SlotKey string

const (
	SlotReminder    SlotKey = "reminder"
	SlotDuration    SlotKey = "duration"
	SlotDay         SlotKey = "day"
	SlotTime        SlotKey = "time"
	SlotPhoneNumber SlotKey = "phoneNumber"
)

// RecognizedSlots is the fixed set of keys reconciled on every reminder turn.
var RecognizedSlots = []SlotKey{SlotReminder, SlotDuration, SlotDay, SlotTime, SlotPhoneNumber}

// Attributes is the session state echoed back to the platform between turns.
// An empty string means the value is unknown.
type Attributes struct {
	Reminder    string `json:"reminder,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Day         string `json:"day,omitempty"`
	Time        string `json:"time,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`

	Timestamp string `json:"timestamp,omitempty"`
	Locale    string `json:"locale,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (a *Attributes) field(key SlotKey) *string {
	switch key {
	case SlotReminder:
		return &a.Reminder
	case SlotDuration:
		return &a.Duration
	case SlotDay:
		return &a.Day
	case SlotTime:
		return &a.Time
	case SlotPhoneNumber:
		return &a.PhoneNumber
	}
	return nil
}

// Get returns the stored value for key, or "" for unknown keys.
func (a *Attributes) Get(key SlotKey) string {
	if a == nil {
		return ""
	}
	if f := a.field(key); f != nil {
		return *f
	}
	return ""
}

// Set stores value under key. Unknown keys are ignored.
func (a *Attributes) Set(key SlotKey, value string) {
	if f := a.field(key); f != nil {
		*f = value
	}
}

// Clone returns a copy that shares nothing with a.
func (a *Attributes) Clone() *Attributes {
	if a == nil {
		return &Attributes{}
	}
	c := *a
	return &c
}

// Action is the per-turn view of the recognized slots after reconciliation.
type Action struct {
	Reminder    string
	Duration    string
	Day         string
	Time        string
	PhoneNumber string
}

func (a *Action) set(key SlotKey, value string) {
	switch key {
	case SlotReminder:
		a.Reminder = value
	case SlotDuration:
		a.Duration = value
	case SlotDay:
		a.Day = value
	case SlotTime:
		a.Time = value
	case SlotPhoneNumber:
		a.PhoneNumber = value
	}
}

// HasTarget reports whether any of day, time or duration is known.
func (a Action) HasTarget() bool {
	return a.Duration != "" || a.Day != "" || a.Time != ""
}
