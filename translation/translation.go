// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package translation provides the texts of the model messages.
// A go-i18n bundle is created with english default texts. Additional languages can be added
// programmatically or by JSON/YAML message files.
//
// Every message is identified by its code (attribute-required, attribute-type, ...).
// The message ID in the bundle is the code prefixed by the group ORM.
package translation

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ORM translation group.
const ORM = "ORM."

// Message codes.
const (
	AttributeRequired = "attribute-required"
	DefaultValueUsed  = "default-value-used"
	OldValueUsed      = "old-value-user"
	AttributeType     = "attribute-type"
	RelationNotFound  = "relation-not-found"
)

// Error messages.
var (
	ErrWrap = "translation: %w"
)

// defaults are the english texts.
var defaults = []*i18n.Message{
	{ID: ORM + AttributeRequired, Other: "{{.Attribute}} is required."},
	{ID: ORM + DefaultValueUsed, Other: "{{.Attribute}} was empty, the default value was used."},
	{ID: ORM + OldValueUsed, Other: "{{.Attribute}} was empty, the current value was kept."},
	{ID: ORM + AttributeType, Other: "{{.Attribute}} is not a valid {{.Kind}}."},
	{ID: ORM + RelationNotFound, Other: "{{.Attribute}}: the linked entry {{.ID}} does not exist."},
}

// Bundle wraps the i18n.Bundle and caches the localizer per language.
type Bundle struct {
	mu         sync.Mutex
	bundle     *i18n.Bundle
	localizers map[string]*i18n.Localizer
}

// New creates a bundle with the given default language.
// The english default texts are always added.
func New(defaultLang language.Tag) (*Bundle, error) {
	b := i18n.NewBundle(defaultLang)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	b.RegisterUnmarshalFunc("yml", yaml.Unmarshal)
	if err := b.AddMessages(language.English, defaults...); err != nil {
		return nil, fmt.Errorf(ErrWrap, err)
	}
	return &Bundle{bundle: b, localizers: map[string]*i18n.Localizer{}}, nil
}

// AddMessages adds texts for a language.
// The message ID is the code without the ORM group.
func (b *Bundle) AddMessages(lang language.Tag, texts map[string]string) error {
	msgs := make([]*i18n.Message, 0, len(texts))
	for code, text := range texts {
		msgs = append(msgs, &i18n.Message{ID: ORM + code, Other: text})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.localizers = map[string]*i18n.Localizer{}
	if err := b.bundle.AddMessages(lang, msgs...); err != nil {
		return fmt.Errorf(ErrWrap, err)
	}
	return nil
}

// LoadFile loads a go-i18n message file (json or yaml).
// The language is taken from the file name (active.de.yaml).
func (b *Bundle) LoadFile(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.localizers = map[string]*i18n.Localizer{}
	if _, err := b.bundle.LoadMessageFile(path); err != nil {
		return fmt.Errorf(ErrWrap, err)
	}
	return nil
}

// Languages returns all languages of the bundle.
func (b *Bundle) Languages() []language.Tag {
	return b.bundle.LanguageTags()
}

// Text returns the translated text of the code.
// The lang is a list of accept-language strings, if empty the default language is used.
// If the code is unknown, the code itself will return.
func (b *Bundle) Text(lang string, code string, data map[string]interface{}) string {
	text, err := b.localizer(lang).Localize(&i18n.LocalizeConfig{MessageID: ORM + code, TemplateData: data})
	if err != nil || text == "" {
		return code
	}
	return text
}

// localizer returns a cached localizer for the given language.
func (b *Bundle) localizer(lang string) *i18n.Localizer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.localizers[lang]; ok {
		return l
	}
	l := i18n.NewLocalizer(b.bundle, lang)
	b.localizers[lang] = l
	return l
}

var std *Bundle

func init() {
	var err error
	std, err = New(language.English)
	if err != nil {
		panic(err)
	}
}

// Default returns the package bundle which is used by the orm.
func Default() *Bundle {
	return std
}

// Text returns the text of the package bundle.
func Text(lang string, code string, data map[string]interface{}) string {
	return std.Text(lang, code, data)
}
