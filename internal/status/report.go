package status

import "time"

// Report is the JSON shape notifiers and the API publish. Unlike Status it
// includes the target.
type Report struct {
	Hostname    string    `json:"hostname"`
	Host        string    `json:"host"`
	Port        uint16    `json:"port"`
	Version     Version   `json:"version"`
	Players     Players   `json:"players"`
	Description string    `json:"description"`
	Favicon     string    `json:"favicon,omitempty"`
	SecureChat  bool      `json:"enforces_secure_chat"`
	PreviewChat bool      `json:"previews_chat"`
	ObservedAt  time.Time `json:"observed_at"`
}

// NewReport builds the published form of s.
func NewReport(s *Status, at time.Time) Report {
	return Report{
		Hostname:    s.Hostname,
		Host:        s.Host,
		Port:        s.Port,
		Version:     s.Version,
		Players:     s.Players,
		Description: s.Description.Text,
		Favicon:     s.Favicon,
		SecureChat:  s.EnforcesSecureChat,
		PreviewChat: s.PreviewsChat,
		ObservedAt:  at.UTC(),
	}
}
