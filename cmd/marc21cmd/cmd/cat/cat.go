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

package cat

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/marc21"
)

type conf struct {
	permissive      bool
	toUTF8          bool
	defaultEncoding string
	combinePartials string
}

// NewCommand returns the "cat" subcommand: decode and print each file's records.
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "cat <file...>",
		Short: "Decode records and print their canonical dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			return runE(c, args)
		},
	}

	cmd.Flags().BoolVar(&c.permissive, "permissive", false, "recover from framing/directory anomalies instead of rejecting the record")
	cmd.Flags().BoolVar(&c.toUTF8, "to-utf8", false, "force every record's data to UTF-8")
	cmd.Flags().StringVar(&c.defaultEncoding, "default-encoding", "MARC8", "encoding assumed when the leader does not declare Unicode: MARC8, ISO-8859-1, UTF-8, BESTGUESS")
	cmd.Flags().StringVar(&c.combinePartials, "combine-partials", "", "comma-separated tags merged from continuation records sharing the same 001")

	return cmd
}

func (c *conf) readerOptions() []marc21.ReaderOption {
	opts := []marc21.ReaderOption{
		marc21.WithPermissiveReading(c.permissive),
		marc21.WithForceUTF8(c.toUTF8),
		marc21.WithDefaultEncoding(c.defaultEncoding),
	}
	if c.combinePartials != "" {
		opts = append(opts, marc21.WithCombinePartials(strings.Split(c.combinePartials, ",")...))
	}
	return opts
}

func runE(c *conf, files []string) error {
	var errs marc21.MultiError
	for _, name := range files {
		if err := catFile(c, name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func catFile(c *conf, name string) error {
	fr, err := marc21.OpenFile(name, c.readerOptions()...)
	if err != nil {
		return err
	}
	defer fr.Close()

	count := 0
	for fr.HasNext() {
		rec, err := fr.Next()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%s: record %d: %v\n", name, count, err)
			continue
		}
		fmt.Print(rec.String())
		fmt.Println()
		for _, d := range fr.Diagnostics() {
			logrus.WithField("file", name).Warn(d.String())
		}
		count++
	}
	fmt.Fprintf(os.Stderr, "%s: %d records\n", name, count)
	return nil
}
