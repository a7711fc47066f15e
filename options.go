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

import "github.com/sirupsen/logrus"

// readerOptions configures a Reader.
type readerOptions struct {
	permissive       bool
	forceUTF8        bool
	defaultEncoding  string
	combinePartials  map[string]bool
	logger           *logrus.Logger
}

// ReaderOption configures a Reader's framing, decoding and repair behavior.
type ReaderOption interface {
	apply(*readerOptions)
}

// funcOption wraps a function that modifies readerOptions into an implementation of
// the ReaderOption interface.
type funcOption struct {
	f func(*readerOptions)
}

func (fo *funcOption) apply(ro *readerOptions) {
	fo.f(ro)
}

func newFuncOption(f func(*readerOptions)) *funcOption {
	return &funcOption{f: f}
}

func defaultReaderOptions() readerOptions {
	return readerOptions{
		permissive:      false,
		forceUTF8:       false,
		defaultEncoding: "MARC8",
		logger:          logrus.StandardLogger(),
	}
}

// WithPermissiveReading enables the repair heuristics: misstated lengths, missing
// terminators and misaligned directories are repaired and reported rather than failing
// the record. Defaults to false.
func WithPermissiveReading(permissive bool) ReaderOption {
	return newFuncOption(func(o *readerOptions) {
		o.permissive = permissive
	})
}

// WithForceUTF8 converts every record to UTF-8 regardless of what its Leader declares,
// updating the character-coding-scheme position of the decoded record's Leader to 'a'.
// Defaults to false.
func WithForceUTF8(force bool) ReaderOption {
	return newFuncOption(func(o *readerOptions) {
		o.forceUTF8 = force
	})
}

// WithDefaultEncoding sets the encoding name fed to the Converter when the Leader does
// not declare Unicode. One of "MARC8", "ISO-8859-1", "UTF-8", "BESTGUESS". Defaults to
// "MARC8".
func WithDefaultEncoding(encoding string) ReaderOption {
	return newFuncOption(func(o *readerOptions) {
		o.defaultEncoding = encoding
	})
}

// WithCombinePartials enables continuation merging: after a record is decoded,
// subsequent records sharing its "001" control number are treated as continuations,
// and any of their fields whose tag is in tags is appended to the first record. The
// continuation records themselves are suppressed from iteration. Unset by default.
func WithCombinePartials(tags ...string) ReaderOption {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return newFuncOption(func(o *readerOptions) {
		o.combinePartials = set
	})
}

// WithLogger sets the logger used for operational and repair logging. Defaults to
// logrus's standard logger.
func WithLogger(logger *logrus.Logger) ReaderOption {
	return newFuncOption(func(o *readerOptions) {
		o.logger = logger
	})
}
