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

package ls

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlnwa/marc21"
)

type conf struct {
	permissive bool
}

// NewCommand returns the "ls" subcommand: one summary line per record.
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "ls <file...>",
		Short: "List one summary line per record: ordinal, control number, length, field count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			var errs marc21.MultiError
			for _, name := range args {
				if err := listFile(c, name); err != nil {
					errs = append(errs, err)
				}
			}
			if len(errs) > 0 {
				return errs
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&c.permissive, "permissive", false, "recover from framing/directory anomalies instead of rejecting the record")

	return cmd
}

func listFile(c *conf, name string) error {
	fr, err := marc21.OpenFile(name, marc21.WithPermissiveReading(c.permissive))
	if err != nil {
		return err
	}
	defer fr.Close()

	ordinal := 0
	for fr.HasNext() {
		rec, err := fr.Next()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%s: record %d: %v\n", name, ordinal, err)
			continue
		}
		ordinal++
		id, _ := rec.GetControlNumber()
		fmt.Printf("%d\t%s\t%d\t%d\n", ordinal, id, rec.Leader.RecordLength, countDataFields(rec))
	}
	return nil
}

func countDataFields(rec *marc21.Record) int {
	n := 0
	for _, f := range rec.AllFields() {
		if _, ok := f.(*marc21.DataField); ok {
			n++
		}
	}
	return n
}
