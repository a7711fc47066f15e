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
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nlnwa/marc21/pkg/countingreader"
)

// FileReader opens a MARC21 file, transparently gzip-decompressing files named
// "*.mrc.gz", and drives a Reader over its contents.
type FileReader struct {
	*Reader
	file    *os.File
	counted *countingreader.Reader
}

// OpenFile opens path and returns a FileReader over it. Close releases the underlying
// file handle.
func OpenFile(path string, opts ...ReaderOption) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("marc21: opening %s: %w", path, err)
	}

	counted := countingreader.New(f)
	var src io.Reader = counted
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(counted)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("marc21: opening gzip stream in %s: %w", path, err)
		}
		src = gz
	}

	fr := &FileReader{
		Reader:  NewReader(src, opts...),
		file:    f,
		counted: counted,
	}
	fr.Reader.opts.logger.WithField("file", path).Debug("opened marc21 file")
	return fr, nil
}

// BytesRead returns the number of compressed (on-disk) bytes consumed so far.
func (fr *FileReader) BytesRead() int64 {
	return fr.counted.N()
}

// Close releases the underlying file handle.
func (fr *FileReader) Close() error {
	return fr.file.Close()
}
