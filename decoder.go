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
	"bytes"
	"fmt"
	"strings"
)

type directoryEntry struct {
	tag    string
	length int
	offset int
}

// Decode turns a RawRecord into a Record, splitting the data area into control and data
// fields via the Leader's Directory and converting field bytes through conv.
func Decode(raw *RawRecord, conv Converter, opts readerOptions, v *Validation) (*Record, error) {
	data := raw.Bytes()
	if len(data) < LeaderLength {
		return nil, fmt.Errorf("%w: record shorter than leader", ErrMalformedLeader)
	}

	leader, err := ParseLeader(data[:LeaderLength])
	if err != nil {
		if verr := v.Add(Diagnostic{Severity: Fatal, Message: err.Error()}); verr != nil {
			return nil, verr
		}
		return nil, err
	}

	base := leader.BaseAddress
	if base <= LeaderLength || base > len(data) || data[base-1] != fieldTerminator {
		realigned, ok := realignBaseAddress(data, base)
		if !ok {
			if verr := v.Add(Diagnostic{Severity: MajorError, Message: "base address does not point to a field terminator"}); verr != nil {
				return nil, verr
			}
		} else {
			if verr := v.Add(Diagnostic{Severity: MinorError, Message: "base address corrected"}); verr != nil {
				return nil, verr
			}
			base = realigned
			leader.BaseAddress = realigned
		}
	}

	entries, err := decodeDirectory(data, base, v)
	if err != nil {
		return nil, err
	}

	rec := NewRecord(leader)
	for _, e := range entries {
		start := base + e.offset
		end := start + e.length
		if start < 0 || end > len(data) || start > end {
			if verr := v.Add(Diagnostic{Severity: MajorError, Tag: e.tag, Message: "field slice out of bounds"}); verr != nil {
				return nil, verr
			}
			continue
		}
		field := data[start:end]
		if len(field) == 0 || field[len(field)-1] != fieldTerminator {
			if verr := v.Add(Diagnostic{Severity: MinorError, Tag: e.tag, Message: "field missing terminator"}); verr != nil {
				return nil, verr
			}
		} else {
			field = field[:len(field)-1]
		}

		isControl, ok := classifyTag(e.tag)
		if !ok {
			if verr := v.Add(Diagnostic{Severity: MinorError, Tag: e.tag, Message: "non-numeric or out-of-range tag preserved literally"}); verr != nil {
				return nil, verr
			}
			isControl = false // best-effort: unparseable tags are treated as data
		}

		if isControl {
			text, failed, cerr := convertRecordText(conv, field, leader, opts)
			if cerr != nil {
				return nil, cerr
			}
			if len(failed) > 0 {
				if verr := v.Add(Diagnostic{Severity: MinorError, Tag: e.tag, Message: "charset conversion failed for some bytes"}); verr != nil {
					return nil, verr
				}
			}
			if guessedEncoding(leader, opts) {
				if verr := v.Add(Diagnostic{Severity: Info, Tag: e.tag, Message: "encoding guessed between MARC-8 and UTF-8 (BESTGUESS)"}); verr != nil {
					return nil, verr
				}
			}
			rec.AddField(&ControlField{FieldTag: e.tag, Data: text})
			continue
		}

		df, derr := decodeDataField(e.tag, field, conv, leader, opts, v)
		if derr != nil {
			return nil, derr
		}
		rec.AddField(df)
	}

	if opts.forceUTF8 {
		rec.Leader.CharCodingScheme = 'a'
	}

	return rec, nil
}

func convertRecordText(conv Converter, data []byte, leader Leader, opts readerOptions) (string, []byte, error) {
	if leader.IsUnicode() {
		return conv.Convert(data, "UTF-8")
	}
	return conv.Convert(data, opts.defaultEncoding)
}

// guessedEncoding reports whether the conversion just performed by convertRecordText went
// through the BESTGUESS path, which picks between MARC-8 and UTF-8 per field rather than
// trusting a single declared encoding.
func guessedEncoding(leader Leader, opts readerOptions) bool {
	return !leader.IsUnicode() && strings.EqualFold(opts.defaultEncoding, "BESTGUESS")
}

func decodeDataField(tag string, field []byte, conv Converter, leader Leader, opts readerOptions, v *Validation) (*DataField, error) {
	if len(field) < 2 {
		if verr := v.Add(Diagnostic{Severity: MinorError, Tag: tag, Message: "data field shorter than two indicator bytes"}); verr != nil {
			return nil, verr
		}
		padded := make([]byte, len(field), len(field)+2)
		copy(padded, field)
		field = append(padded, ' ', ' ')
	}
	ind1, ind2 := field[0], field[1]
	if !isStandardIndicator(ind1) || !isStandardIndicator(ind2) {
		if verr := v.Add(Diagnostic{Severity: Info, Tag: tag, Message: "non-standard indicator preserved verbatim"}); verr != nil {
			return nil, verr
		}
	}

	df := &DataField{FieldTag: tag, Indicator1: ind1, Indicator2: ind2}
	rest := field[2:]
	for len(rest) > 0 {
		if rest[0] != subfieldDelim {
			// Stray bytes before the first subfield delimiter are dropped, matching
			// the permissive-mode "preserve structure, drop garbage" stance.
			idx := bytes.IndexByte(rest, subfieldDelim)
			if idx < 0 {
				break
			}
			rest = rest[idx:]
			continue
		}
		rest = rest[1:]
		if len(rest) == 0 {
			df.Subfields = append(df.Subfields, Subfield{Code: 0, Data: ""})
			break
		}
		code := rest[0]
		next := bytes.IndexByte(rest[1:], subfieldDelim)
		var chunk []byte
		if next < 0 {
			chunk = rest[1:]
			rest = nil
		} else {
			chunk = rest[1 : 1+next]
			rest = rest[1+next:]
		}
		text, failed, err := convertRecordText(conv, chunk, leader, opts)
		if err != nil {
			return nil, err
		}
		if len(failed) > 0 {
			if verr := v.Add(Diagnostic{Severity: MinorError, Tag: tag, Subfield: code, Message: "charset conversion failed for some bytes"}); verr != nil {
				return nil, verr
			}
		}
		if guessedEncoding(leader, opts) {
			if verr := v.Add(Diagnostic{Severity: Info, Tag: tag, Subfield: code, Message: "encoding guessed between MARC-8 and UTF-8 (BESTGUESS)"}); verr != nil {
				return nil, verr
			}
		}
		df.Subfields = append(df.Subfields, Subfield{Code: code, Data: text})
	}
	return df, nil
}

func isStandardIndicator(b byte) bool {
	return b == ' ' || (b >= '0' && b <= '9')
}

// decodeDirectory scans the Directory between the Leader and base address, realigning to
// the nearest field terminator when the expected boundary is missing.
func decodeDirectory(data []byte, base int, v *Validation) ([]directoryEntry, error) {
	end := base - 1
	if end < LeaderLength || end > len(data) || data[end] != fieldTerminator {
		nearest := findNearestTerminator(data, end)
		if nearest < 0 {
			if err := v.Add(Diagnostic{Severity: MajorError, Message: "directory misaligned, no field terminator found"}); err != nil {
				return nil, err
			}
			nearest = len(data)
		} else {
			if err := v.Add(Diagnostic{Severity: MinorError, Message: "directory misaligned"}); err != nil {
				return nil, err
			}
		}
		end = nearest
	}

	var entries []directoryEntry
	for pos := LeaderLength; pos+12 <= end; pos += 12 {
		tag := string(data[pos : pos+3])
		length, lerr := parseDecimal(data[pos+3 : pos+7])
		offset, operr := parseDecimal(data[pos+7 : pos+12])
		if lerr != nil || operr != nil {
			if err := v.Add(Diagnostic{Severity: MinorError, Tag: tag, Message: "malformed directory entry"}); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, directoryEntry{tag: tag, length: length, offset: offset})
	}
	return entries, nil
}

func findNearestTerminator(data []byte, near int) int {
	for radius := 0; radius < 64; radius++ {
		if near-radius >= LeaderLength && near-radius < len(data) && data[near-radius] == fieldTerminator {
			return near - radius
		}
		if near+radius < len(data) && data[near+radius] == fieldTerminator {
			return near + radius
		}
	}
	return -1
}

// realignBaseAddress infers a base address from the first field terminator found at or
// after the Leader, used when the Leader's stated base address is inconsistent.
func realignBaseAddress(data []byte, stated int) (int, bool) {
	for i := LeaderLength; i < len(data); i++ {
		if data[i] == fieldTerminator {
			return i + 1, true
		}
	}
	return stated, false
}
