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

package validate

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	whatwg "github.com/nlnwa/whatwg-url/url"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/marc21"
)

type conf struct {
	checkLinks bool
}

// NewCommand returns the "validate" subcommand: permissive decode, so that every anomaly
// is reported instead of its record being skipped, plus optional link checks.
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "validate <file...>",
		Short: "Decode records permissively and report every diagnostic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			runID := uuid.New().String()
			log := logrus.WithField("run", runID)

			failed := false
			for _, name := range args {
				bad, err := validateFile(c, log, name)
				if err != nil {
					return err
				}
				failed = failed || bad
			}
			if failed {
				return errors.New("one or more records failed validation")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&c.checkLinks, "check-links", false, "additionally validate 856 $u subfields as well-formed URLs")

	return cmd
}

func validateFile(c *conf, log *logrus.Entry, name string) (bool, error) {
	fr, err := marc21.OpenFile(name, marc21.WithPermissiveReading(true))
	if err != nil {
		return false, err
	}
	defer fr.Close()

	failed := false
	ordinal := 0
	for fr.HasNext() {
		rec, err := fr.Next()
		ordinal++
		if err != nil {
			failed = true
			printDiagnostic(name, ordinal, marc21.Diagnostic{Severity: marc21.Fatal, Message: err.Error()})
			continue
		}
		for _, d := range fr.Diagnostics() {
			printDiagnostic(name, ordinal, d)
			if d.Severity >= marc21.MajorError {
				failed = true
			}
		}
		if c.checkLinks {
			if !checkLinks(rec) {
				failed = true
				printDiagnostic(name, ordinal, marc21.Diagnostic{Severity: marc21.MinorError, Tag: "856", Message: "malformed $u URL"})
			}
		}
	}
	log.WithField("file", name).WithField("records", ordinal).Debug("validated file")
	return failed, nil
}

func checkLinks(rec *marc21.Record) bool {
	ok := true
	for _, f := range rec.GetFields("856") {
		df, isData := f.(*marc21.DataField)
		if !isData {
			continue
		}
		sf, has := df.GetSubfield('u')
		if !has {
			continue
		}
		if _, err := whatwg.Parse(sf.Data); err != nil {
			ok = false
		}
	}
	return ok
}

func printDiagnostic(file string, ordinal int, d marc21.Diagnostic) {
	c := severityColor(d.Severity)
	fmt.Fprintf(os.Stderr, "%s: record %d: %s\n", file, ordinal, c.Sprint(d.String()))
}

func severityColor(s marc21.Severity) *color.Color {
	switch {
	case s >= marc21.Fatal:
		return color.New(color.FgRed, color.Bold)
	case s >= marc21.MajorError:
		return color.New(color.FgRed)
	case s >= marc21.Typo:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
