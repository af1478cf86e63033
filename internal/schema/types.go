// Package schema models metaform definitions: ordered sections of typed
// fields, plus the resolution rules that map a field name to its declared
// type and a declared type to its storage shape.
package schema

import (
	"slices"
	"sync"
)

// FieldType is the declared type of a metaform field.
type FieldType string

const (
	FieldTypeText         FieldType = "text"
	FieldTypeSmallText    FieldType = "small-text"
	FieldTypeMemo         FieldType = "memo"
	FieldTypeNumber       FieldType = "number"
	FieldTypeBoolean      FieldType = "boolean"
	FieldTypeChecklist    FieldType = "checklist"
	FieldTypeSelect       FieldType = "select"
	FieldTypeRadio        FieldType = "radio"
	FieldTypeAutocomplete FieldType = "autocomplete"
	FieldTypeDate         FieldType = "date"
	FieldTypeTime         FieldType = "time"
	FieldTypeDateTime     FieldType = "date-time"
	FieldTypeEmail        FieldType = "email"
	FieldTypeURL          FieldType = "url"
	FieldTypeHidden       FieldType = "hidden"
	FieldTypeTable        FieldType = "table"
	FieldTypeFiles        FieldType = "files"
	FieldTypeHTML         FieldType = "html"
	FieldTypeLogo         FieldType = "logo"
	FieldTypeSubmit       FieldType = "submit"
)

// MetaContext marks a field whose value is computed from reply metadata
// instead of being stored.
const MetaContext = "META"

// Metaform is one version of a form schema. Field names are expected to be
// unique across the whole form; the schema store does not enforce this, the
// first field with a given name wins on lookup.
type Metaform struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Sections []Section `json:"sections" yaml:"sections"`

	indexOnce  sync.Once
	fieldIndex map[string]*Field
}

// Section is an ordered group of fields.
type Section struct {
	Title  string  `json:"title" yaml:"title"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field is a single form field declaration.
type Field struct {
	Name     string        `json:"name" yaml:"name"`
	Type     FieldType     `json:"type" yaml:"type"`
	Title    string        `json:"title" yaml:"title"`
	Required bool          `json:"required" yaml:"required"`
	Contexts []string      `json:"contexts" yaml:"contexts"`
	Options  []FieldOption `json:"options" yaml:"options"`
	Columns  []TableColumn `json:"columns" yaml:"columns"`
}

// FieldOption is one selectable option of a select, radio, autocomplete or
// checklist field.
type FieldOption struct {
	Name string `json:"name" yaml:"name"`
	Text string `json:"text" yaml:"text"`
}

// TableColumn declares one column of a table field.
type TableColumn struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"` // "text" or "number"
	Title string `json:"title" yaml:"title"`
}

// FindField resolves a field by name. Sections and fields are scanned in
// declaration order and the first match wins; a lazily built index backs
// repeated lookups. Returns nil when the form declares no such field.
func (m *Metaform) FindField(name string) *Field {
	m.indexOnce.Do(m.buildIndex)
	return m.fieldIndex[name]
}

func (m *Metaform) buildIndex() {
	index := make(map[string]*Field)
	for si := range m.Sections {
		fields := m.Sections[si].Fields
		for fi := range fields {
			f := &fields[fi]
			if _, ok := index[f.Name]; !ok {
				index[f.Name] = f
			}
		}
	}
	m.fieldIndex = index
}

// Fields returns every field of the form in declaration order.
func (m *Metaform) Fields() []*Field {
	var out []*Field
	for si := range m.Sections {
		fields := m.Sections[si].Fields
		for fi := range fields {
			out = append(out, &fields[fi])
		}
	}
	return out
}

// IsMetaField reports whether the named field is a computed meta field,
// i.e. it resolves to a field carrying the META context tag.
func (m *Metaform) IsMetaField(name string) bool {
	f := m.FindField(name)
	if f == nil {
		return false
	}
	return slices.Contains(f.Contexts, MetaContext)
}
