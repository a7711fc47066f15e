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
	"io"
)

// Encode writes rec back out in ISO 2709 form, recomputing its Directory and the
// Leader's record-length and base-address positions. Content is always written as
// UTF-8, and the written record's Leader declares character-coding-scheme 'a'
// regardless of what the in-memory Record's Leader carried: encoding is where the
// round-trip invariant's "modulo character-set conversion" clause is spent.
func Encode(w io.Writer, rec *Record) (int64, error) {
	type builtField struct {
		tag  string
		data []byte
	}

	fields := make([]builtField, 0, len(rec.controlFields)+len(rec.dataFields))
	for _, cf := range rec.controlFields {
		if len(cf.FieldTag) != 3 {
			return 0, fmt.Errorf("marc21: control field tag %q is not three characters", cf.FieldTag)
		}
		data := append([]byte(cf.Data), fieldTerminator)
		fields = append(fields, builtField{tag: cf.FieldTag, data: data})
	}
	for _, df := range rec.dataFields {
		if len(df.FieldTag) != 3 {
			return 0, fmt.Errorf("marc21: data field tag %q is not three characters", df.FieldTag)
		}
		var buf bytes.Buffer
		buf.WriteByte(df.Indicator1)
		buf.WriteByte(df.Indicator2)
		for _, sf := range df.Subfields {
			buf.WriteByte(subfieldDelim)
			buf.WriteByte(sf.Code)
			buf.WriteString(sf.Data)
		}
		buf.WriteByte(fieldTerminator)
		fields = append(fields, builtField{tag: df.FieldTag, data: buf.Bytes()})
	}

	directory := make([]byte, 0, 12*len(fields)+1)
	dataArea := make([]byte, 0, 256)
	offset := 0
	for _, f := range fields {
		if len(f.data) > 9999 {
			return 0, fmt.Errorf("marc21: field %q exceeds the 4-digit directory length limit", f.tag)
		}
		if offset > 99999 {
			return 0, fmt.Errorf("marc21: data area exceeds the 5-digit directory offset limit")
		}
		directory = append(directory, []byte(f.tag)...)
		directory = append(directory, formatDecimal(len(f.data), 4)...)
		directory = append(directory, formatDecimal(offset, 5)...)
		dataArea = append(dataArea, f.data...)
		offset += len(f.data)
	}
	directory = append(directory, fieldTerminator)

	base := LeaderLength + len(directory)
	total := base + len(dataArea) + 1 // +1 for the trailing Record Terminator
	if total > 99999 {
		return 0, fmt.Errorf("marc21: encoded record length %d exceeds the 5-digit leader limit", total)
	}

	leader := rec.Leader
	leader.RecordLength = total
	leader.BaseAddress = base
	leader.CharCodingScheme = 'a'
	if leader.IndicatorCount == 0 {
		leader.IndicatorCount = '2'
	}
	if leader.SubfieldCodeCount == 0 {
		leader.SubfieldCodeCount = '2'
	}
	if leader.LenOfLength == 0 {
		leader.LenOfLength = '4'
	}
	if leader.LenOfStartCharPos == 0 {
		leader.LenOfStartCharPos = '5'
	}

	out := make([]byte, 0, total)
	out = append(out, leader.Bytes()...)
	out = append(out, directory...)
	out = append(out, dataArea...)
	out = append(out, recordTerminator)

	n, err := w.Write(out)
	return int64(n), err
}
