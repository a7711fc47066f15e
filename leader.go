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

import "fmt"

// LeaderLength is the fixed size in bytes of every MARC21 Leader.
const LeaderLength = 24

// Leader is the fixed 24-byte header of a MARC21 record.
type Leader struct {
	RecordLength          int
	RecordStatus          byte
	TypeOfRecord          byte
	BibliographicLevel    byte
	CharCodingScheme      byte // ' ' = MARC-8, 'a' = UCS/Unicode
	IndicatorCount        byte
	SubfieldCodeCount     byte
	BaseAddress           int
	EncodingLevel         byte
	DescriptiveCatForm    byte
	MultipartResource     byte
	LenOfLength           byte
	LenOfStartCharPos     byte
	LenOfImplDefined      byte
	Undefined             byte
}

// ParseLeader interprets a 24-byte buffer as a Leader. It fails only when buf is not
// 24 bytes long or the record-length or base-address positions are not ASCII decimal
// digits.
func ParseLeader(buf []byte) (Leader, error) {
	if len(buf) != LeaderLength {
		return Leader{}, fmt.Errorf("marc21: leader must be %d bytes, got %d", LeaderLength, len(buf))
	}

	length, err := parseDecimal(buf[0:5])
	if err != nil {
		return Leader{}, fmt.Errorf("%w: record length: %v", ErrMalformedLeader, err)
	}
	base, err := parseDecimal(buf[12:17])
	if err != nil {
		return Leader{}, fmt.Errorf("%w: base address: %v", ErrMalformedLeader, err)
	}

	return Leader{
		RecordLength:       length,
		RecordStatus:       buf[5],
		TypeOfRecord:       buf[6],
		BibliographicLevel: buf[7],
		CharCodingScheme:   buf[9],
		IndicatorCount:     buf[10],
		SubfieldCodeCount:  buf[11],
		BaseAddress:        base,
		EncodingLevel:      buf[17],
		DescriptiveCatForm: buf[18],
		MultipartResource:  buf[19],
		LenOfLength:        buf[20],
		LenOfStartCharPos:  buf[21],
		LenOfImplDefined:   buf[22],
		Undefined:          buf[23],
	}, nil
}

// parseDecimal parses an ASCII-decimal byte slice, rejecting anything but '0'-'9'.
func parseDecimal(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit byte %q", c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func formatDecimal(n, width int) []byte {
	s := fmt.Sprintf("%0*d", width, n)
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return []byte(s)
}

// Bytes renders the Leader back to its 24-byte wire form.
func (l Leader) Bytes() []byte {
	buf := make([]byte, LeaderLength)
	copy(buf[0:5], formatDecimal(l.RecordLength, 5))
	buf[5] = l.RecordStatus
	buf[6] = l.TypeOfRecord
	buf[7] = l.BibliographicLevel
	buf[8] = ' '
	buf[9] = l.CharCodingScheme
	buf[10] = l.IndicatorCount
	buf[11] = l.SubfieldCodeCount
	copy(buf[12:17], formatDecimal(l.BaseAddress, 5))
	buf[17] = l.EncodingLevel
	buf[18] = l.DescriptiveCatForm
	buf[19] = l.MultipartResource
	buf[20] = l.LenOfLength
	buf[21] = l.LenOfStartCharPos
	buf[22] = l.LenOfImplDefined
	buf[23] = l.Undefined
	return buf
}

// String renders the Leader the way it appears in a raw record: 24 raw characters.
func (l Leader) String() string {
	return string(l.Bytes())
}

// IsUnicode reports whether the Leader declares its data area to be UTF-8.
func (l Leader) IsUnicode() bool {
	return l.CharCodingScheme == 'a'
}
