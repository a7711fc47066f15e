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
	"errors"
	"io"
)

// Reader decodes a stream of concatenated ISO 2709 records. One Reader drains one
// underlying stream; it is not safe for concurrent use.
type Reader struct {
	stream      *ByteStream
	opts        readerOptions
	conv        Converter
	diagnostics []Diagnostic

	buffered      *Record
	bufferedErr   error
	bufferedDiags []Diagnostic
	haveBuffer    bool
}

// NewReader creates a Reader over r, applying the given options.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Reader{
		stream: NewByteStream(r),
		opts:   o,
		conv:   NewConverter(),
	}
}

// HasNext reports whether another record is available, buffering one record ahead if
// necessary. It does not consume the record returned by a subsequent Next.
func (rd *Reader) HasNext() bool {
	if !rd.haveBuffer {
		rd.buffered, rd.bufferedErr = rd.decodeOne()
		rd.haveBuffer = true
	}
	return rd.buffered != nil
}

// take returns and clears the buffered record (decoding one if necessary).
func (rd *Reader) take() (*Record, error) {
	if !rd.haveBuffer {
		rd.HasNext()
	}
	rec, err := rd.buffered, rd.bufferedErr
	rd.diagnostics = rd.bufferedDiags
	rd.buffered, rd.bufferedErr, rd.haveBuffer = nil, nil, false
	if rec == nil && err == nil {
		return nil, ErrNoSuchRecord
	}
	return rec, err
}

// Next decodes and returns the next record, applying continuation-merging if
// WithCombinePartials was set. Records that fail to frame or decode are skipped. Once
// the stream is exhausted Next fails with ErrNoSuchRecord, or with the framing error
// that ended the stream (a truncated Leader or a record cut off by end of stream).
func (rd *Reader) Next() (*Record, error) {
	rec, err := rd.take()
	if err != nil || rec == nil {
		return nil, err
	}

	if rd.opts.combinePartials != nil {
		diags := rd.diagnostics
		defer func() { rd.diagnostics = diags }()
		mainID, ok := rec.GetControlNumber()
		for ok {
			if !rd.HasNext() {
				break
			}
			nextID, hasNextID := rd.buffered.GetControlNumber()
			if !hasNextID || nextID != mainID {
				break
			}
			cont, _ := rd.take()
			diags = append(diags, rd.diagnostics...)
			for _, f := range cont.AllFields() {
				if rd.opts.combinePartials[f.Tag()] {
					rec.AddField(f)
				}
			}
		}
	}

	return rec, nil
}

// Diagnostics returns the diagnostics collected while decoding the most recently
// returned record, including those of any continuation records merged into it.
func (rd *Reader) Diagnostics() []Diagnostic {
	return rd.diagnostics
}

// decodeOne extracts and decodes one record, transparently skipping and retrying past
// per-record failures so that a malformed record does not lose the rest of the stream.
func (rd *Reader) decodeOne() (*Record, error) {
	for {
		v := NewValidation(rd.opts.permissive)
		raw, err := ExtractFrame(rd.stream, v)
		if err != nil {
			rd.bufferedDiags = v.Diagnostics()

			var ferr *FramingError
			if errors.As(err, &ferr) {
				if errors.Is(ferr.Err, ErrEndOfStream) {
					return nil, nil
				}
				if errors.Is(ferr.Err, ErrTruncatedLeader) || errors.Is(ferr.Err, ErrUnexpectedEOF) {
					return nil, err
				}
			}
			// A frame rejected by policy has been read through its Record Terminator
			// already, so the next record starts at the current position.
			if errors.Is(err, ErrRecordRejected) {
				continue
			}
			rd.skipToNextTerminator()
			continue
		}

		rec, derr := Decode(raw, rd.conv, rd.opts, v)
		rd.bufferedDiags = v.Diagnostics()
		if derr != nil {
			continue
		}
		return rec, nil
	}
}

// skipToNextTerminator resynchronizes the stream after a per-record failure that left
// it positioned mid-record, consuming bytes up to and including the next Record
// Terminator (or end of stream).
func (rd *Reader) skipToNextTerminator() {
	for {
		b, err := rd.stream.ReadByte()
		if err != nil {
			return
		}
		if b == recordTerminator {
			return
		}
	}
}
