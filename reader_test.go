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

func Test_Reader_IteratesAllRecords(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeToBytes(sampleRecord("001")))
	buf.Write(encodeToBytes(sampleRecord("002")))
	buf.Write(encodeToBytes(sampleRecord("003")))

	r := NewReader(&buf)
	var ids []string
	for r.HasNext() {
		rec, err := r.Next()
		require.NoError(t, err)
		id, _ := rec.GetControlNumber()
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"001", "002", "003"}, ids)
	assert.False(t, r.HasNext())
}

func Test_Reader_EmptyStreamHasNoNext(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	assert.False(t, r.HasNext())
}

func Test_Reader_NextAfterExhaustionFails(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrNoSuchRecord)
}

func Test_Reader_SkipsMalformedRecordAndContinues(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeToBytes(sampleRecord("001")))
	// A bogus frame at least LeaderLength bytes long, terminated by 0x1D, so the
	// malformed-leader detection consumes only this frame and not the next record.
	buf.Write(bytes.Repeat([]byte("G"), LeaderLength))
	buf.WriteByte(recordTerminator)
	buf.Write(encodeToBytes(sampleRecord("003")))

	r := NewReader(&buf, WithPermissiveReading(true))
	var ids []string
	for r.HasNext() {
		rec, err := r.Next()
		if err != nil {
			continue
		}
		id, _ := rec.GetControlNumber()
		ids = append(ids, id)
	}
	assert.Contains(t, ids, "001")
	assert.Contains(t, ids, "003")
}

func Test_Reader_CombinePartialsMergesMatchingControlNumbers(t *testing.T) {
	main := sampleRecord("500")
	continuation := NewRecord(main.Leader)
	continuation.AddField(&ControlField{FieldTag: "001", Data: "500"})
	continuation.AddField(&DataField{
		FieldTag: "650", Indicator1: ' ', Indicator2: '0',
		Subfields: []Subfield{{'a', "Fantasy fiction."}},
	})

	var buf bytes.Buffer
	buf.Write(encodeToBytes(main))
	buf.Write(encodeToBytes(continuation))
	buf.Write(encodeToBytes(sampleRecord("501"))) // unrelated record, must stay separate

	r := NewReader(&buf, WithCombinePartials("650"))
	require.True(t, r.HasNext())
	rec, err := r.Next()
	require.NoError(t, err)

	id, _ := rec.GetControlNumber()
	assert.Equal(t, "500", id)
	subject := rec.GetField("650")
	require.NotNil(t, subject)

	require.True(t, r.HasNext())
	second, err := r.Next()
	require.NoError(t, err)
	secondID, _ := second.GetControlNumber()
	assert.Equal(t, "501", secondID)

	assert.False(t, r.HasNext())
}

func Test_Reader_CombinePartialsDropsFieldsWithUnlistedTags(t *testing.T) {
	main := sampleRecord("600")
	continuation := NewRecord(main.Leader)
	continuation.AddField(&ControlField{FieldTag: "001", Data: "600"})
	continuation.AddField(&DataField{
		FieldTag: "700", Indicator1: ' ', Indicator2: ' ',
		Subfields: []Subfield{{'a', "Some, Author."}},
	})

	var buf bytes.Buffer
	buf.Write(encodeToBytes(main))
	buf.Write(encodeToBytes(continuation))

	// Only "650" is configured to merge, so the continuation's "700" must be dropped.
	r := NewReader(&buf, WithCombinePartials("650"))
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, rec.GetField("700"))
	assert.False(t, r.HasNext())
}
