// Package status defines the snapshot produced by one successful status
// probe and the target it was taken from.
package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the decoded status response of one probe. It is built once,
// enriched with the target, and never modified afterwards: notifiers share
// the same pointer concurrently.
type Status struct {
	Version            Version     `json:"version"`
	Players            Players     `json:"players"`
	Description        Description `json:"description"`
	Favicon            string      `json:"favicon,omitempty"`
	EnforcesSecureChat bool        `json:"enforcesSecureChat"`
	PreviewsChat       bool        `json:"previewsChat"`

	// Target the probe connected to. Not part of the wire payload.
	Hostname string `json:"-"`
	Host     string `json:"-"`
	Port     uint16 `json:"-"`
}

// Version is the server software label and protocol number.
type Version struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// Players holds the player counts and the optional sample list.
type Players struct {
	Max    int      `json:"max"`
	Online int      `json:"online"`
	Sample []Player `json:"sample,omitempty"`
}

// Player is one entry of the player sample.
type Player struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Names returns the sampled player names joined by sep.
func (p Players) Names(sep string) string {
	names := make([]string, 0, len(p.Sample))
	for _, pl := range p.Sample {
		names = append(names, pl.Name)
	}
	return strings.Join(names, sep)
}

// Description is the server's message of the day, flattened to plain text.
// Servers send a bare string, a chat component object or an array of
// either.
type Description struct {
	Text string `json:"text"`
}

type chatComponent struct {
	Text  string            `json:"text"`
	Extra []json.RawMessage `json:"extra"`
}

// UnmarshalJSON accepts every description form.
func (d *Description) UnmarshalJSON(data []byte) error {
	var b strings.Builder
	if err := flattenComponent(data, &b, 0); err != nil {
		return err
	}
	d.Text = b.String()
	return nil
}

func flattenComponent(data []byte, b *strings.Builder, depth int) error {
	if depth > 32 {
		return fmt.Errorf("description nested too deeply")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b.WriteString(s)
		return nil
	}
	if data[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		for _, part := range parts {
			if err := flattenComponent(part, b, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	var c chatComponent
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	b.WriteString(c.Text)
	for _, extra := range c.Extra {
		if err := flattenComponent(extra, b, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses a status JSON payload.
func Decode(data []byte) (*Status, error) {
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// WithTarget returns a copy of s carrying the target it was probed from.
func (s Status) WithTarget(t Target) *Status {
	s.Hostname = t.Hostname
	s.Host = t.Host
	s.Port = t.Port
	return &s
}

// Address returns host:port of the probed target.
func (s *Status) Address() string {
	return Target{Host: s.Host, Port: s.Port}.Address()
}
