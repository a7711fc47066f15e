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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWire(t *testing.T, wire []byte, permissive bool) (*Record, *Validation) {
	t.Helper()
	v := NewValidation(permissive)
	rec, err := Decode(&RawRecord{bytes: wire}, NewConverter(), defaultReaderOptions(), v)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec, v
}

func Test_Decode_RoundTripsFieldsAndSubfields(t *testing.T) {
	orig := sampleRecord("001")
	rec, v := decodeWire(t, encodeToBytes(orig), false)

	assert.Empty(t, v.Diagnostics())
	num, ok := rec.GetControlNumber()
	assert.True(t, ok)
	assert.Equal(t, "001", num)

	title := rec.GetField("245")
	require.NotNil(t, title)
	df, ok := title.(*DataField)
	require.True(t, ok)
	assert.Equal(t, byte('1'), df.Indicator1)
	assert.Equal(t, byte('0'), df.Indicator2)
	sf, ok := df.GetSubfield('a')
	require.True(t, ok)
	assert.Equal(t, "Summerland /", sf.Data)
}

func Test_Decode_ControlFieldClassification(t *testing.T) {
	rec, _ := decodeWire(t, encodeToBytes(sampleRecord("001")), false)
	field008 := rec.GetField("008")
	_, isControl := field008.(*ControlField)
	assert.True(t, isControl)
}

func Test_Decode_MalformedDirectoryEntrySkippedWithDiagnostic(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	// Corrupt the length digits of the first directory entry (right after the 3-char tag).
	mutated := append([]byte(nil), wire...)
	mutated[LeaderLength+3] = 'X'

	v := NewValidation(true)
	_, err := Decode(&RawRecord{bytes: mutated}, NewConverter(), defaultReaderOptions(), v)
	require.NoError(t, err)
	require.NotEmpty(t, v.Diagnostics())
	assert.Equal(t, MinorError, v.Diagnostics()[0].Severity)
}

func Test_Decode_BaseAddressRealignedWhenWrong(t *testing.T) {
	wire := encodeToBytes(sampleRecord("001"))
	orig, err := ParseLeader(wire[:LeaderLength])
	require.NoError(t, err)

	mutated := append([]byte(nil), wire...)
	copy(mutated[12:17], formatDecimal(orig.BaseAddress+5, 5))

	v := NewValidation(true)
	rec, err := Decode(&RawRecord{bytes: mutated}, NewConverter(), defaultReaderOptions(), v)
	require.NoError(t, err)
	require.NotNil(t, rec)

	found := false
	for _, d := range v.Diagnostics() {
		if d.Message == "base address corrected" {
			found = true
		}
	}
	assert.True(t, found)
}

// Test_Decode_ShortDataFieldPaddingDoesNotCorruptNextField builds a record where the
// first data field is only one byte long (just its terminator, with no indicators) and
// is immediately followed in the data area by a second, well-formed data field. Padding
// the short field's indicators must not write into the second field's bytes.
func Test_Decode_ShortDataFieldPaddingDoesNotCorruptNextField(t *testing.T) {
	directoryEntries := []byte{}
	directoryEntries = append(directoryEntries, []byte("600")...)
	directoryEntries = append(directoryEntries, formatDecimal(1, 4)...)
	directoryEntries = append(directoryEntries, formatDecimal(0, 5)...)
	directoryEntries = append(directoryEntries, []byte("700")...)
	directoryEntries = append(directoryEntries, formatDecimal(6, 4)...)
	directoryEntries = append(directoryEntries, formatDecimal(1, 5)...)

	dataArea := []byte{fieldTerminator}
	dataArea = append(dataArea, ' ', ' ', subfieldDelim, 'a', 'Y', fieldTerminator)

	base := LeaderLength + len(directoryEntries) + 1
	total := base + len(dataArea) + 1

	leader := Leader{RecordLength: total, RecordStatus: 'c', TypeOfRecord: 'a',
		BibliographicLevel: 'm', EncodingLevel: ' ', DescriptiveCatForm: 'a',
		MultipartResource: ' ', BaseAddress: base}

	wire := append([]byte{}, leader.Bytes()...)
	wire = append(wire, directoryEntries...)
	wire = append(wire, fieldTerminator)
	wire = append(wire, dataArea...)
	wire = append(wire, recordTerminator)

	v := NewValidation(true)
	rec, err := Decode(&RawRecord{bytes: wire}, NewConverter(), defaultReaderOptions(), v)
	require.NoError(t, err)

	field700 := rec.GetField("700")
	require.NotNil(t, field700)
	df, ok := field700.(*DataField)
	require.True(t, ok)
	assert.Equal(t, byte(' '), df.Indicator1)
	assert.Equal(t, byte(' '), df.Indicator2)
	sf, ok := df.GetSubfield('a')
	require.True(t, ok)
	assert.Equal(t, "Y", sf.Data)
}

func Test_Decode_TooShortForLeaderFails(t *testing.T) {
	v := NewValidation(true)
	_, err := Decode(&RawRecord{bytes: []byte("short")}, NewConverter(), defaultReaderOptions(), v)
	assert.ErrorIs(t, err, ErrMalformedLeader)
}
