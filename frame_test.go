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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExtractFrame_WellFormedRecord(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	s := NewByteStream(bytes.NewReader(wire))
	v := NewValidation(false)

	raw, err := ExtractFrame(s, v)
	require.NoError(t, err)
	assert.Equal(t, wire, raw.Bytes())
	assert.Equal(t, "001", raw.ID())
	assert.Empty(t, v.Diagnostics())
}

func Test_ExtractFrame_TwoConsecutiveRecords(t *testing.T) {
	a := encodeToBytes(sampleRecord("100"))
	b := encodeToBytes(sampleRecord("200"))
	s := NewByteStream(bytes.NewReader(append(append([]byte{}, a...), b...)))

	first, err := ExtractFrame(s, NewValidation(false))
	require.NoError(t, err)
	assert.Equal(t, a, first.Bytes())

	second, err := ExtractFrame(s, NewValidation(false))
	require.NoError(t, err)
	assert.Equal(t, b, second.Bytes())
}

func Test_ExtractFrame_EndOfStream(t *testing.T) {
	s := NewByteStream(bytes.NewReader(nil))
	_, err := ExtractFrame(s, NewValidation(true))
	require.Error(t, err)
	fe, ok := err.(*FramingError)
	require.True(t, ok)
	assert.ErrorIs(t, fe.Err, ErrEndOfStream)
}

func Test_ExtractFrame_TruncatedLeader(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	s := NewByteStream(bytes.NewReader(wire[:10]))
	_, err := ExtractFrame(s, NewValidation(true))
	require.Error(t, err)
	fe, ok := err.(*FramingError)
	require.True(t, ok)
	assert.ErrorIs(t, fe.Err, ErrTruncatedLeader)
}

// mutateStatedLength rewrites the 5-digit stated length in a record's Leader without
// touching the rest of the bytes, producing a length/content mismatch on demand.
func mutateStatedLength(wire []byte, newLength int) []byte {
	mutated := append([]byte(nil), wire...)
	copy(mutated[0:5], []byte(formatDecimal(newLength, 5)))
	return mutated
}

func Test_ExtractFrame_StatedLengthShorterThanLeaderFailsWithoutPanic(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	mutated := mutateStatedLength(wire, 0)

	s := NewByteStream(bytes.NewReader(mutated))
	v := NewValidation(true)
	_, err := ExtractFrame(s, v)
	require.Error(t, err)
	fe, ok := err.(*FramingError)
	require.True(t, ok)
	assert.ErrorIs(t, fe.Err, ErrMalformedLeader)
	require.Len(t, v.Diagnostics(), 1)
	assert.Equal(t, Fatal, v.Diagnostics()[0].Severity)
}

func Test_ExtractFrame_StatedLengthTooLong_PermissiveRecovers(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	mutated := mutateStatedLength(wire, len(wire)+50)
	// Pad so the stream actually has that many bytes to read without hitting real EOF.
	padded := append(append([]byte{}, mutated...), bytes.Repeat([]byte{' '}, 50)...)

	s := NewByteStream(bytes.NewReader(padded))
	v := NewValidation(true)
	raw, err := ExtractFrame(s, v)
	require.NoError(t, err)
	// The frame keeps its bytes as read, so its Leader still states the wrong length.
	assert.Equal(t, mutated[:len(wire)], raw.Bytes())
	require.Len(t, v.Diagnostics(), 1)
	assert.Equal(t, MajorError, v.Diagnostics()[0].Severity)
}

func Test_ExtractFrame_StatedLengthTooLong_StrictFails(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	mutated := mutateStatedLength(wire, len(wire)+50)
	padded := append(append([]byte{}, mutated...), bytes.Repeat([]byte{' '}, 50)...)

	s := NewByteStream(bytes.NewReader(padded))
	v := NewValidation(false)
	_, err := ExtractFrame(s, v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordRejected)
}

func Test_ExtractFrame_StatedLengthTooShort_PermissiveRecovers(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	mutated := mutateStatedLength(wire, len(wire)-10)

	s := NewByteStream(bytes.NewReader(mutated))
	v := NewValidation(true)
	raw, err := ExtractFrame(s, v)
	require.NoError(t, err)
	// The frame keeps its bytes as read, so its Leader still states the wrong length.
	assert.Equal(t, mutated, raw.Bytes())
	require.Len(t, v.Diagnostics(), 1)
	assert.Equal(t, MajorError, v.Diagnostics()[0].Severity)
}

func Test_ExtractFrame_MissingTerminatorBeforeEOF(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	// Strip the trailing Record Terminator and under-declare so ExtractFrame keeps
	// scanning byte-by-byte until real EOF without ever finding 0x1D.
	noTerm := wire[:len(wire)-1]
	mutated := mutateStatedLength(noTerm, len(noTerm)-5)

	s := NewByteStream(bytes.NewReader(mutated))
	v := NewValidation(true)
	_, err := ExtractFrame(s, v)
	require.Error(t, err)
	fe, ok := err.(*FramingError)
	require.True(t, ok)
	assert.ErrorIs(t, fe.Err, ErrUnexpectedEOF)
	require.Len(t, v.Diagnostics(), 1)
	assert.Equal(t, Fatal, v.Diagnostics()[0].Severity)
}

func Test_CombineRawRecords_ConcatenatesAndKeepsFirstID(t *testing.T) {
	a := &RawRecord{bytes: []byte("aaa")}
	a.id, a.idSet = "001", true
	b := &RawRecord{bytes: []byte("bbb")}
	b.id, b.idSet = "002", true

	combined := CombineRawRecords(a, b)
	assert.Equal(t, []byte("aaabbb"), combined.Bytes())
	assert.Equal(t, "001", combined.ID())
}
