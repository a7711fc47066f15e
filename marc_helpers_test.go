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

import "bytes"

// sampleRecord returns a small, well-formed record used across the framing, decoding
// and reader test suites: one control number and one title data field.
func sampleRecord(controlNumber string) *Record {
	r := NewRecord(Leader{RecordStatus: 'c', TypeOfRecord: 'a', BibliographicLevel: 'm',
		EncodingLevel: ' ', DescriptiveCatForm: 'a', MultipartResource: ' '})
	r.AddField(&ControlField{FieldTag: "001", Data: controlNumber})
	r.AddField(&ControlField{FieldTag: "008", Data: "020805s2002 nyu j 000 1 eng"})
	r.AddField(&DataField{
		FieldTag: "245", Indicator1: '1', Indicator2: '0',
		Subfields: []Subfield{{'a', "Summerland /"}, {'c', "Michael Chabon."}},
	})
	return r
}

// encodeToBytes encodes rec with Encode and returns the raw wire bytes.
func encodeToBytes(rec *Record) []byte {
	var buf bytes.Buffer
	if _, err := Encode(&buf, rec); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
