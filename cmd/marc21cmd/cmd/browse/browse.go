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

package browse

import (
	"errors"
	"fmt"

	"github.com/jroimartin/gocui"
	"github.com/spf13/cobra"

	"github.com/nlnwa/marc21"
)

// NewCommand returns the "browse" subcommand: an interactive gocui record inspector.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <file>",
		Short: "Browse a file's records interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("browse takes exactly one file")
			}
			return runE(args[0])
		},
	}
}

type browser struct {
	records []*marc21.Record
	cursor  int
}

func loadRecords(path string) ([]*marc21.Record, error) {
	fr, err := marc21.OpenFile(path, marc21.WithPermissiveReading(true))
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	var records []*marc21.Record
	for fr.HasNext() {
		rec, err := fr.Next()
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func runE(path string) error {
	records, err := loadRecords(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("marc21: %s contains no decodable records", path)
	}

	b := &browser{records: records}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	g.SetManagerFunc(b.layout)

	if err := g.SetKeybinding("", gocui.KeyArrowDown, gocui.ModNone, b.next); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyArrowUp, gocui.ModNone, b.previous); err != nil {
		return err
	}
	if err := g.SetKeybinding("", 'j', gocui.ModNone, b.next); err != nil {
		return err
	}
	if err := g.SetKeybinding("", 'k', gocui.ModNone, b.previous); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", 'q', gocui.ModNone, quit); err != nil {
		return err
	}

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func (b *browser) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	listWidth := maxX / 4

	if v, err := g.SetView("list", 0, 0, listWidth, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "records"
		b.renderList(v)
	}

	if v, err := g.SetView("detail", listWidth+1, 0, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "record"
		v.Wrap = true
		b.renderDetail(v)
	}
	return nil
}

func (b *browser) renderList(v *gocui.View) {
	v.Clear()
	for i, rec := range b.records {
		id, _ := rec.GetControlNumber()
		marker := "  "
		if i == b.cursor {
			marker = "> "
		}
		fmt.Fprintf(v, "%s%d %s\n", marker, i+1, id)
	}
}

func (b *browser) renderDetail(v *gocui.View) {
	v.Clear()
	fmt.Fprint(v, b.records[b.cursor].String())
}

func (b *browser) next(g *gocui.Gui, v *gocui.View) error {
	if b.cursor < len(b.records)-1 {
		b.cursor++
	}
	return b.refresh(g)
}

func (b *browser) previous(g *gocui.Gui, v *gocui.View) error {
	if b.cursor > 0 {
		b.cursor--
	}
	return b.refresh(g)
}

func (b *browser) refresh(g *gocui.Gui) error {
	if v, err := g.View("list"); err == nil {
		b.renderList(v)
	}
	if v, err := g.View("detail"); err == nil {
		b.renderDetail(v)
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
