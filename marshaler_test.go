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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Encode_ProducesWellFormedFrame(t *testing.T) {
	rec := sampleRecord("001")
	var buf bytes.Buffer
	n, err := Encode(&buf, rec)
	require.NoError(t, err)
	wire := buf.Bytes()
	assert.Equal(t, int64(len(wire)), n)
	assert.Equal(t, recordTerminator, wire[len(wire)-1])

	leader, err := ParseLeader(wire[:LeaderLength])
	require.NoError(t, err)
	assert.Equal(t, len(wire), leader.RecordLength)
	assert.Equal(t, byte('a'), leader.CharCodingScheme)
}

func Test_Encode_RoundTripsThroughDecode(t *testing.T) {
	orig := sampleRecord("42")
	wire := encodeToBytes(orig)

	v := NewValidation(false)
	rec, err := Decode(&RawRecord{bytes: wire}, NewConverter(), defaultReaderOptions(), v)
	require.NoError(t, err)
	assert.Empty(t, v.Diagnostics())

	num, ok := rec.GetControlNumber()
	assert.True(t, ok)
	assert.Equal(t, "42", num)
	// Encode recomputes the Leader's length, base address and coding scheme, so only the
	// field lines of the dump are expected to survive the round trip unchanged.
	assert.Equal(t, strings.SplitN(orig.String(), "\n", 2)[1], strings.SplitN(rec.String(), "\n", 2)[1])
}

func Test_Encode_RejectsFieldExceedingFourDigitLengthLimit(t *testing.T) {
	rec := NewRecord(Leader{})
	rec.AddField(&ControlField{FieldTag: "001", Data: "1"})
	rec.AddField(&ControlField{FieldTag: "500", Data: strings.Repeat("x", 10000)})

	var buf bytes.Buffer
	_, err := Encode(&buf, rec)
	assert.Error(t, err)
}

func Test_Encode_RejectsNonThreeCharacterTag(t *testing.T) {
	rec := NewRecord(Leader{})
	rec.AddField(&ControlField{FieldTag: "1", Data: "x"})

	var buf bytes.Buffer
	_, err := Encode(&buf, rec)
	assert.Error(t, err)
}

func Test_Record_String_MatchesFieldDumpFormat(t *testing.T) {
	rec := sampleRecord("001")
	dump := rec.String()
	assert.Contains(t, dump, "001 001")
	assert.Contains(t, dump, "245 10$aSummerland /$cMichael Chabon.")
}
