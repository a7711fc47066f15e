/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package marc21

import (
	"regexp"
	"strings"
)

// Field is the capability set common to ControlField and DataField: a tagged variant
// standing in for the source's VariableField inheritance hierarchy.
type Field interface {
	Tag() string
	Matches(pattern *regexp.Regexp) bool
	String() string
}

// ControlField is a fixed- or variable-length field with tag "001"-"009" holding only data.
type ControlField struct {
	FieldTag string
	Data     string
}

func (c *ControlField) Tag() string { return c.FieldTag }

func (c *ControlField) String() string {
	return c.FieldTag + " " + c.Data
}

func (c *ControlField) Matches(pattern *regexp.Regexp) bool {
	return pattern.MatchString(c.String())
}

// Subfield is a subfield-delimiter-prefixed unit within a DataField.
type Subfield struct {
	Code byte
	Data string
}

// DataField is a variable field with tag "010"-"999", two indicator bytes and one or
// more subfields.
type DataField struct {
	FieldTag   string
	Indicator1 byte
	Indicator2 byte
	Subfields  []Subfield
}

func (d *DataField) Tag() string { return d.FieldTag }

func (d *DataField) String() string {
	var sb strings.Builder
	sb.WriteString(d.FieldTag)
	sb.WriteByte(' ')
	sb.WriteByte(d.Indicator1)
	sb.WriteByte(d.Indicator2)
	for _, sf := range d.Subfields {
		sb.WriteByte('$')
		sb.WriteByte(sf.Code)
		sb.WriteString(sf.Data)
	}
	return sb.String()
}

func (d *DataField) Matches(pattern *regexp.Regexp) bool {
	return pattern.MatchString(d.String())
}

// GetSubfield returns the first subfield with the given code, if any.
func (d *DataField) GetSubfield(code byte) (Subfield, bool) {
	for _, sf := range d.Subfields {
		if sf.Code == code {
			return sf, true
		}
	}
	return Subfield{}, false
}

// classifyTag reports whether tag identifies a control field (true) or data field
// (false), and whether tag is well-formed at all. Tags that are not exactly three ASCII
// digits are neither: ok is false and callers must treat that as "no match", not an error.
func classifyTag(tag string) (isControl bool, ok bool) {
	if len(tag) != 3 {
		return false, false
	}
	n, err := parseDecimal([]byte(tag))
	if err != nil {
		return false, false
	}
	switch {
	case n >= 1 && n <= 9:
		return true, true
	case n >= 10 && n <= 999:
		return false, true
	default:
		return false, false
	}
}

// Record is the in-memory MARC21 record: a Leader plus ordered control and data fields.
type Record struct {
	Leader        Leader
	controlFields []*ControlField
	dataFields    []*DataField
}

// NewRecord creates an empty Record with the given Leader.
func NewRecord(leader Leader) *Record {
	return &Record{Leader: leader}
}

// AddField adds f to the record. A control field tagged "001" replaces any existing
// "001" control field in place, or becomes the first control field if there is none;
// any other field is appended to the matching list.
func (r *Record) AddField(f Field) {
	switch t := f.(type) {
	case *ControlField:
		if t.FieldTag == "001" {
			for i, cf := range r.controlFields {
				if cf.FieldTag == "001" {
					r.controlFields[i] = t
					return
				}
			}
			r.controlFields = append([]*ControlField{t}, r.controlFields...)
			return
		}
		r.controlFields = append(r.controlFields, t)
	case *DataField:
		r.dataFields = append(r.dataFields, t)
	}
}

// RemoveField removes f by identity from the record. It is a no-op if f is not present.
func (r *Record) RemoveField(f Field) {
	switch t := f.(type) {
	case *ControlField:
		for i, cf := range r.controlFields {
			if cf == t {
				r.controlFields = append(r.controlFields[:i], r.controlFields[i+1:]...)
				return
			}
		}
	case *DataField:
		for i, df := range r.dataFields {
			if df == t {
				r.dataFields = append(r.dataFields[:i], r.dataFields[i+1:]...)
				return
			}
		}
	}
}

// GetControlNumber returns the data of the "001" field, if present.
func (r *Record) GetControlNumber() (string, bool) {
	for _, cf := range r.controlFields {
		if cf.FieldTag == "001" {
			return cf.Data, true
		}
	}
	return "", false
}

// GetField returns the first field with the given tag, or nil if none matches or tag
// does not parse as a three-digit MARC tag.
func (r *Record) GetField(tag string) Field {
	fields := r.GetFields(tag)
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

// GetFields returns every field with the given tag, in record order.
func (r *Record) GetFields(tag string) []Field {
	isControl, ok := classifyTag(tag)
	if !ok {
		return nil
	}
	var result []Field
	if isControl {
		for _, cf := range r.controlFields {
			if cf.FieldTag == tag {
				result = append(result, cf)
			}
		}
		return result
	}
	for _, df := range r.dataFields {
		if df.FieldTag == tag {
			result = append(result, df)
		}
	}
	return result
}

// GetFieldsByTags returns the concatenation of GetFields(tag) for each tag, in the
// order the tags are given.
func (r *Record) GetFieldsByTags(tags []string) []Field {
	var result []Field
	for _, tag := range tags {
		result = append(result, r.GetFields(tag)...)
	}
	return result
}

// AllFields returns every field: control fields in insertion order (with "001" first),
// followed by data fields in insertion order.
func (r *Record) AllFields() []Field {
	result := make([]Field, 0, len(r.controlFields)+len(r.dataFields))
	for _, cf := range r.controlFields {
		result = append(result, cf)
	}
	for _, df := range r.dataFields {
		result = append(result, df)
	}
	return result
}

// Find returns every field whose stringified form matches pattern, control fields
// scanned before data fields.
func (r *Record) Find(pattern *regexp.Regexp) []Field {
	var result []Field
	for _, f := range r.AllFields() {
		if f.Matches(pattern) {
			result = append(result, f)
		}
	}
	return result
}

// FindTag returns every field with the given tag whose stringified form matches pattern.
func (r *Record) FindTag(tag string, pattern *regexp.Regexp) []Field {
	var result []Field
	for _, f := range r.GetFields(tag) {
		if f.Matches(pattern) {
			result = append(result, f)
		}
	}
	return result
}

// String renders the human-readable dump used for diffing and diagnostics: "LEADER "
// followed by the raw leader, then each field's canonical form, one per line.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("LEADER ")
	sb.WriteString(r.Leader.String())
	sb.WriteByte('\n')
	for _, f := range r.AllFields() {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
