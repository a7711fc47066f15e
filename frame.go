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

const (
	fieldTerminator  byte = 0x1E
	recordTerminator byte = 0x1D
	subfieldDelim    byte = 0x1F
)

// maxDeclaredLength is the largest record length the Leader's 5-digit length field can
// state. ExtractFrame marks the stream once, up front, with this limit, so that probing
// the Leader and re-reading the whole record from a Reset share one replay window.
const maxDeclaredLength = 99999

// RawRecord owns the exact bytes of one ISO 2709 record, Leader through Record
// Terminator inclusive, together with a lazily computed identifier.
type RawRecord struct {
	bytes []byte
	id    string
	idSet bool
}

// Bytes returns the record's raw wire bytes. The slice must not be mutated.
func (r *RawRecord) Bytes() []byte {
	return r.bytes
}

// ID returns the trimmed data of the "001" control field, or "" if absent. It is
// computed by a direct structural walk over the raw bytes, the same walk the
// Directory/field decoder performs, without materializing the record as a string.
func (r *RawRecord) ID() string {
	if !r.idSet {
		r.id = structuralFieldValue(r.bytes, "001")
		r.idSet = true
	}
	return r.id
}

// structuralFieldValue walks a raw record's Leader and Directory to find the trimmed
// data of the first field matching tag, without decoding the whole record. Returns ""
// if the tag is absent or the record is too short to contain a directory.
func structuralFieldValue(raw []byte, tag string) string {
	if len(raw) < LeaderLength {
		return ""
	}
	base, err := parseDecimal(raw[12:17])
	if err != nil || base > len(raw) {
		return ""
	}
	for dir := LeaderLength; dir+12 <= base; dir += 12 {
		entryTag := string(raw[dir : dir+3])
		length, err := parseDecimal(raw[dir+3 : dir+7])
		if err != nil {
			continue
		}
		offset, err := parseDecimal(raw[dir+7 : dir+12])
		if err != nil {
			continue
		}
		if entryTag != tag {
			continue
		}
		start := base + offset
		end := start + length
		if start < 0 || end > len(raw) || start > end {
			return ""
		}
		data := raw[start:end]
		if len(data) > 0 && data[len(data)-1] == fieldTerminator {
			data = data[:len(data)-1]
		}
		return string(bytes.Trim(data, " "))
	}
	return ""
}

// CombineRawRecords concatenates the raw bytes of two records, in order, and derives the
// combined record's identifier from the first record's "001" field.
func CombineRawRecords(a, b *RawRecord) *RawRecord {
	combined := make([]byte, 0, len(a.bytes)+len(b.bytes))
	combined = append(combined, a.bytes...)
	combined = append(combined, b.bytes...)
	return &RawRecord{bytes: combined, id: a.ID(), idSet: true}
}

// ExtractFrame reads exactly one record's bytes from s, applying the recovery rules for
// misstated lengths, missing terminators and truncated streams. It never consumes bytes
// belonging to the next record; on failure the caller is responsible for scanning ahead
// to the next Record Terminator before retrying.
func ExtractFrame(s *ByteStream, v *Validation) (*RawRecord, error) {
	s.Mark(maxDeclaredLength)
	leaderBuf := make([]byte, LeaderLength)
	n, err := s.ReadExact(leaderBuf)
	if err != nil {
		if n == 0 {
			return nil, &FramingError{Offset: s.Offset(), Err: ErrEndOfStream}
		}
		return nil, &FramingError{Offset: s.Offset(), Err: ErrTruncatedLeader}
	}

	length, perr := parseDecimal(leaderBuf[0:5])
	if perr != nil {
		return nil, &FramingError{Offset: s.Offset(), Err: fmt.Errorf("%w: %v", ErrMalformedLeader, perr)}
	}
	if length < LeaderLength {
		// A length this short can't even hold the Leader it was read from; treat it the
		// same as any other unparseable Leader rather than indexing into a buffer that
		// doesn't have a last byte.
		_ = v.Add(Diagnostic{Severity: Fatal, Message: "stated record length shorter than the leader"})
		return nil, &FramingError{Offset: s.Offset(), Err: fmt.Errorf("%w: stated length %d shorter than leader", ErrMalformedLeader, length)}
	}

	if err := s.Reset(); err != nil {
		return nil, &FramingError{Offset: s.Offset(), Err: err}
	}

	buf := make([]byte, length)
	got, err := s.ReadExact(buf)
	if err == nil {
		return finishFrameCaseA(s, v, buf, length)
	}
	if err == io.ErrUnexpectedEOF {
		return finishFrameCaseB(s, v, buf, got)
	}
	return nil, &FramingError{Offset: s.Offset(), Err: err}
}

// finishFrameCaseA handles the "ReadExact succeeded" branch of the framing algorithm.
func finishFrameCaseA(s *ByteStream, v *Validation, buf []byte, length int) (*RawRecord, error) {
	if buf[length-1] == recordTerminator {
		return &RawRecord{bytes: buf}, nil
	}

	p := bytes.IndexByte(buf, recordTerminator)
	if p >= 0 && p < length-1 {
		// Declared length too long: reread exactly p+1 bytes, leaving the rest of the
		// replay window to be read as the start of the next record.
		if err := s.Reset(); err != nil {
			return nil, &FramingError{Offset: s.Offset(), Err: err}
		}
		short := make([]byte, p+1)
		if _, err := s.ReadExact(short); err != nil {
			return nil, &FramingError{Offset: s.Offset(), Err: err}
		}
		if err := v.Add(Diagnostic{Severity: MajorError, Message: "stated length too long"}); err != nil {
			return nil, err
		}
		return &RawRecord{bytes: short}, nil
	}

	// Declared length too short: keep reading one byte at a time until 0x1D or EOF.
	extended := append([]byte(nil), buf...)
	for {
		b, err := s.ReadByte()
		if err != nil {
			// The diagnostic is always fatal here regardless of policy; record it for
			// visibility but the stream has nothing left to offer this record either way.
			_ = v.Add(Diagnostic{Severity: Fatal, Message: "missing record terminator before end of stream"})
			return nil, &FramingError{Offset: s.Offset(), Err: ErrUnexpectedEOF}
		}
		extended = append(extended, b)
		if b == recordTerminator {
			if err := v.Add(Diagnostic{Severity: MajorError, Message: "stated length too short"}); err != nil {
				return nil, err
			}
			return &RawRecord{bytes: extended}, nil
		}
	}
}

// finishFrameCaseB handles the "ReadExact failed with EOF" branch: re-read sequentially
// everything the stream actually had, look for a terminator within it, and then rewind
// once more to take only the bytes through that terminator.
func finishFrameCaseB(s *ByteStream, v *Validation, buf []byte, got int) (*RawRecord, error) {
	if err := s.Reset(); err != nil {
		return nil, &FramingError{Offset: s.Offset(), Err: err}
	}
	avail := make([]byte, 0, got)
	for {
		b, err := s.ReadByte()
		if err != nil {
			break
		}
		avail = append(avail, b)
	}

	p := bytes.IndexByte(avail, recordTerminator)
	if p < 0 {
		return nil, &FramingError{Offset: s.Offset(), Err: ErrUnexpectedEOF}
	}
	if err := s.Reset(); err != nil {
		return nil, &FramingError{Offset: s.Offset(), Err: err}
	}
	frame := make([]byte, p+1)
	if _, err := s.ReadExact(frame); err != nil {
		return nil, &FramingError{Offset: s.Offset(), Err: err}
	}
	if err := v.Add(Diagnostic{Severity: MajorError, Message: "declared length exceeds available data"}); err != nil {
		return nil, err
	}
	return &RawRecord{bytes: frame}, nil
}
