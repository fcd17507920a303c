package types

// Event is one message delivered by the realtime stream. The stream
// multiplexes heartbeats ("nop"), refresh signals ("tickle") and inline
// payloads ("push") over the same JSON shape.
type Event struct {
	Type    string        `json:"type"`
	Subtype string        `json:"subtype,omitempty"` // set on tickles, e.g. "push" or "device"
	Push    *PushEnvelope `json:"push,omitempty"`    // inline payload, only on type "push"
}

// PushEnvelope is the inner payload of a "push" event. When Encrypted
// is set only Ciphertext is populated and the remaining fields belong
// to the decrypted structure instead.
type PushEnvelope struct {
	Type            string `json:"type"`
	Encrypted       bool   `json:"encrypted,omitempty"`
	Ciphertext      string `json:"ciphertext,omitempty"`
	ApplicationName string `json:"application_name,omitempty"`
	PackageName     string `json:"package_name,omitempty"`
	NotificationID  string `json:"notification_id,omitempty"`
	Title           string `json:"title,omitempty"`
	Body            string `json:"body,omitempty"`
	Dismissed       bool   `json:"dismissed,omitempty"`
}

// Push is one item from the account's push history, newest first.
type Push struct {
	Iden       string  `json:"iden"`
	Type       string  `json:"type"`
	Title      string  `json:"title,omitempty"`
	Body       string  `json:"body,omitempty"`
	SenderName string  `json:"sender_name,omitempty"`
	FileName   string  `json:"file_name,omitempty"`
	Dismissed  bool    `json:"dismissed,omitempty"`
	Modified   float64 `json:"modified,omitempty"`
}

// Candidate is a classified notification ready for the sink. Key is
// non-empty for mirror payloads and used for dedup; the classifier
// leaves Title and Body untrimmed.
type Candidate struct {
	Title string
	Body  string
	Key   string
}
