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
	"bufio"
	"errors"
	"io"

	"github.com/nlnwa/marc21/internal/diskbuffer"
)

// ErrResetWithoutMark is returned by ByteStream.Reset when no Mark is active.
var ErrResetWithoutMark = errors.New("marc21: Reset called without a preceding Mark")

// ErrMarkOverflow is returned by ByteStream.Reset when more bytes were read since Mark
// than the mark's declared limit, so the replay window can no longer be honored.
var ErrMarkOverflow = errors.New("marc21: Reset called after reading past the marked limit")

// ByteStream is a markable byte source: Mark declares a replay window, Reset rewinds to
// the start of that window, and reads past the window continue to be served (and, while
// the window is still open, recorded) from the underlying reader. It is the framing
// layer's sole means of resynchronizing after a misdeclared record length.
type ByteStream struct {
	src        *bufio.Reader
	marked     bool
	limit      int64
	buf        diskbuffer.Buffer
	overflowed bool
	replaying  bool
	offset     int64
}

// NewByteStream wraps r as a ByteStream. r need not support Seek; the replay window is
// buffered independently of the underlying reader.
func NewByteStream(r io.Reader) *ByteStream {
	return &ByteStream{src: bufio.NewReaderSize(r, 4096)}
}

// Mark declares that up to limit bytes read after this call may later be replayed by
// Reset. A second Mark discards the previous mark's buffered bytes, except those that a
// Reset has rewound to and that have not been read again yet: those are still the
// stream's next bytes, so they are delivered first and count toward the new window.
func (s *ByteStream) Mark(limit int64) {
	var pending []byte
	if s.replaying {
		pending, _ = io.ReadAll(s.buf)
	}
	s.marked = true
	s.limit = limit
	s.buf = diskbuffer.New(diskbuffer.WithMaxMemBytes(limit + 4096))
	s.overflowed = int64(len(pending)) > limit
	s.replaying = false
	if len(pending) > 0 {
		_, _ = s.buf.Write(pending)
		s.replaying = true
	}
}

// Reset rewinds to the most recent Mark so the bytes read since then will be delivered
// again by subsequent ReadByte/ReadExact calls. It fails deterministically, rather than
// silently truncating the replay, if more than the marked limit was already read.
func (s *ByteStream) Reset() error {
	if !s.marked {
		return ErrResetWithoutMark
	}
	if s.overflowed {
		return ErrMarkOverflow
	}
	if _, err := s.buf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.replaying = true
	return nil
}

// Offset returns the number of bytes consumed from the underlying reader so far,
// counting each byte once regardless of how many times it has been replayed.
func (s *ByteStream) Offset() int64 {
	return s.offset
}

// ReadByte returns the next byte, or io.EOF if the stream is exhausted.
func (s *ByteStream) ReadByte() (byte, error) {
	if s.replaying {
		var p [1]byte
		n, err := s.buf.Read(p[:])
		if n == 1 {
			return p[0], nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		s.replaying = false
	}

	b, err := s.src.ReadByte()
	if err != nil {
		return 0, err
	}
	s.offset++

	if s.marked {
		if s.buf.Size() < s.limit {
			if _, werr := s.buf.Write([]byte{b}); werr != nil {
				return 0, werr
			}
		} else {
			s.overflowed = true
		}
	}
	return b, nil
}

// ReadExact fills buf entirely or returns io.ErrUnexpectedEOF with buf partially filled;
// the filled prefix remains replayable via Reset followed by sequential ReadByte calls.
func (s *ByteStream) ReadExact(buf []byte) (int, error) {
	for n := 0; n < len(buf); n++ {
		b, err := s.ReadByte()
		if err != nil {
			if err == io.EOF {
				return n, io.ErrUnexpectedEOF
			}
			return n, err
		}
		buf[n] = b
	}
	return len(buf), nil
}
