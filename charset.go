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
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Converter turns raw field/subfield bytes into a Unicode string. defaultEncoding names
// the encoding to assume when the Leader does not itself declare UTF-8; it is one of
// "MARC8", "ISO-8859-1", "UTF-8", "BESTGUESS". The second return value, when non-nil,
// is the subsequence of input bytes that could not be converted.
type Converter interface {
	Convert(data []byte, defaultEncoding string) (string, []byte, error)
}

type defaultConverter struct{}

// NewConverter returns the module's built-in Converter, backed by
// golang.org/x/text/encoding/charmap for ISO-8859-1 and a table-driven MARC-8/ANSEL
// decoder for the legacy MARC default.
func NewConverter() Converter {
	return defaultConverter{}
}

func (defaultConverter) Convert(data []byte, defaultEncoding string) (string, []byte, error) {
	switch strings.ToUpper(defaultEncoding) {
	case "UTF-8":
		return convertUTF8(data)
	case "ISO-8859-1":
		return convertISO88591(data)
	case "MARC8", "MARC-8", "ANSEL":
		return convertMARC8(data)
	case "BESTGUESS":
		return bestGuess(data)
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, defaultEncoding)
	}
}

func convertUTF8(data []byte) (string, []byte, error) {
	if utf8.Valid(data) {
		return string(data), nil, nil
	}
	var failed []byte
	var sb strings.Builder
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			failed = append(failed, data[i])
			sb.WriteRune(utf8.RuneError)
			i++
			continue
		}
		sb.WriteRune(r)
		i += size
	}
	return sb.String(), failed, nil
}

func convertISO88591(data []byte) (string, []byte, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", data, err
	}
	return string(decoded), nil, nil
}

// marc8Diacritics maps the handful of ANSEL combining-character byte values that
// precede the base letter in MARC-8 text to the Unicode combining mark that follows
// the base letter, which is the ordering Unicode expects. Only the diacritics common
// in bibliographic data are covered; anything else round-trips as U+FFFD.
var marc8Diacritics = map[byte]rune{
	0xE1: '́', // acute accent
	0xE2: '̀', // grave accent
	0xE3: '̂', // circumflex
	0xE4: '̃', // tilde
	0xE5: '̄', // macron
	0xE6: '̆', // breve
	0xE7: '̇', // dot above
	0xE8: '̈', // umlaut/diaeresis
	0xF0: '̧', // cedilla
	0xF2: '̨', // ogonek
}

func convertMARC8(data []byte) (string, []byte, error) {
	var sb strings.Builder
	var failed []byte
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b < 0x80 {
			sb.WriteByte(b)
			continue
		}
		if mark, ok := marc8Diacritics[b]; ok && i+1 < len(data) {
			// ANSEL places the diacritic before the base character; Unicode wants it after.
			sb.WriteByte(data[i+1])
			sb.WriteRune(mark)
			i++
			continue
		}
		failed = append(failed, b)
		sb.WriteRune(utf8.RuneError)
	}
	return sb.String(), failed, nil
}

// bestGuess runs both the MARC-8 and UTF-8 decoders over data and returns whichever
// produced fewer replacement/undecodable bytes, per the permissive policy's encoding
// disagreement rule. The caller is responsible for reporting EncodingGuessed.
func bestGuess(data []byte) (string, []byte, error) {
	utf8Str, utf8Failed, _ := convertUTF8(data)
	marc8Str, marc8Failed, _ := convertMARC8(data)
	if len(utf8Failed) <= len(marc8Failed) {
		return utf8Str, utf8Failed, nil
	}
	return marc8Str, marc8Failed, nil
}
