package transcript

// Message is a single turn reconstructed from an export.
type Message struct {
	Time    string `json:"time"`
	Date    string `json:"date"` // month-first
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	IsMedia bool   `json:"is_media"`
}

// Parsed is the result of one Parse call.
type Parsed struct {
	Messages     []Message `json:"messages"`
	Participants []string  `json:"participants"`
	Title        *string   `json:"title"`

	// Parse diagnostics, not part of the wire format.
	Grammar           Grammar `json:"-"`
	ContinuationLines int     `json:"-"`
	SystemLines       int     `json:"-"`
}
