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
	"os"

	"github.com/prometheus/tsdb/fileutil"

	"github.com/nlnwa/marc21/internal"
)

// FileWriter streams Records to a temporary file and publishes it atomically under its
// final name on a successful Close. A Close called after an error discards the
// temporary file instead of publishing it, so a partially written output is never
// mistaken for a complete one.
type FileWriter struct {
	finalPath string
	tmpPath   string
	file      *os.File
	written   int
	failed    bool
}

// CreateFile creates a FileWriter for the given destination path. namePattern, if
// non-empty, is expanded with Sprintt against {"name": path} to derive the temporary
// file's name; an empty pattern defaults to "<path>.tmp".
func CreateFile(path string, namePattern string) (*FileWriter, error) {
	tmpPath := path + ".tmp"
	if namePattern != "" {
		tmpPath = internal.Sprintt(namePattern, map[string]any{"name": path})
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("marc21: creating %s: %w", tmpPath, err)
	}
	return &FileWriter{finalPath: path, tmpPath: tmpPath, file: f}, nil
}

// WriteRecord encodes rec and appends it to the file.
func (fw *FileWriter) WriteRecord(rec *Record) error {
	n, err := Encode(fw.file, rec)
	fw.written += int(n)
	if err != nil {
		fw.failed = true
		return fmt.Errorf("marc21: writing record: %w", err)
	}
	return nil
}

// Written returns the number of bytes successfully written so far.
func (fw *FileWriter) Written() int {
	return fw.written
}

// Close finishes writing. On success it atomically renames the temporary file into
// place at the destination path; if a prior WriteRecord failed, or closeErr is set by
// the caller, the temporary file is removed instead and never published.
func (fw *FileWriter) Close(closeErr error) error {
	if err := fw.file.Close(); err != nil {
		_ = os.Remove(fw.tmpPath)
		return err
	}
	if closeErr != nil || fw.failed {
		_ = os.Remove(fw.tmpPath)
		return closeErr
	}
	return fileutil.Rename(fw.tmpPath, fw.finalPath)
}
