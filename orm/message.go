// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"encoding/json"

	"github.com/patrickascher/relmap/translation"
)

// Severities of a message.
const (
	ERROR   = "error"
	WARNING = "warning"
	INFO    = "info"
)

// AllMessages is the key of the model messages which holds every message.
const AllMessages = "all"

// Message of a validation.
// It is encoded as [severity, code, text].
type Message struct {
	Severity string
	Code     string
	Text     string
}

// MarshalJSON encodes the message as array.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{m.Severity, m.Code, m.Text})
}

// UnmarshalJSON decodes the message array.
func (m *Message) UnmarshalJSON(b []byte) error {
	var v [3]string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	m.Severity, m.Code, m.Text = v[0], v[1], v[2]
	return nil
}

// newMessage creates a message with the translated text.
func newMessage(lang string, severity string, code string, data map[string]interface{}) Message {
	return Message{Severity: severity, Code: code, Text: translation.Text(lang, code, data)}
}

// Messages of a model by attribute name.
// The key "all" holds every message in the order they were added.
type Messages map[string][]Message

// newMessages returns messages with an empty "all" entry.
func newMessages() Messages {
	return Messages{AllMessages: []Message{}}
}

// add the messages of an attribute.
func (m Messages) add(attribute string, msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	m[attribute] = append(m[attribute], msgs...)
	if attribute != AllMessages {
		m[AllMessages] = append(m[AllMessages], msgs...)
	}
}

// HasError reports if any message has the severity error.
func (m Messages) HasError() bool {
	return hasError(m[AllMessages])
}

// hasError reports if a message with the severity error exists.
func hasError(msgs []Message) bool {
	for _, msg := range msgs {
		if msg.Severity == ERROR {
			return true
		}
	}
	return false
}
