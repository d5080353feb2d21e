// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package uiload parses UI-definition files (the Qt Designer .ui XML
// format) into a tree of widgets with typed property values.
package uiload

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Widget is one node of a loaded UI: a widget or a layout.
type Widget struct {
	Class      string
	Name       string
	Layout     bool
	Properties map[string]any
	Children   []*Widget
}

// Find returns the first descendant (or w itself) named name.
func (w *Widget) Find(name string) *Widget {
	if w.Name == name {
		return w
	}
	for _, c := range w.Children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Walk calls fn for w and every descendant, depth first.
func (w *Widget) Walk(fn func(*Widget)) {
	fn(w)
	for _, c := range w.Children {
		c.Walk(fn)
	}
}

// LoadFile parses the UI definition at path.
func LoadFile(path string) (*Widget, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses a UI definition. The root is the top-level widget.
func Load(r io.Reader) (*Widget, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse ui definition: %w", err)
	}
	root := doc.SelectElement("ui")
	if root == nil {
		return nil, fmt.Errorf("parse ui definition: missing <ui> element")
	}
	top := root.SelectElement("widget")
	if top == nil {
		return nil, fmt.Errorf("parse ui definition: no top-level widget")
	}
	return parseNode(top), nil
}

func parseNode(el *etree.Element) *Widget {
	w := &Widget{
		Class:      el.SelectAttrValue("class", ""),
		Name:       el.SelectAttrValue("name", ""),
		Layout:     el.Tag == "layout",
		Properties: make(map[string]any),
	}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "property":
			if name := child.SelectAttrValue("name", ""); name != "" {
				w.Properties[name] = parseValue(child)
			}
		case "widget", "layout":
			w.Children = append(w.Children, parseNode(child))
		case "item":
			// Layout items wrap a single widget, layout or spacer.
			for _, inner := range child.ChildElements() {
				if inner.Tag == "widget" || inner.Tag == "layout" {
					w.Children = append(w.Children, parseNode(inner))
				}
			}
		}
	}
	return w
}

// parseValue converts the single typed child of a <property> element.
func parseValue(prop *etree.Element) any {
	children := prop.ChildElements()
	if len(children) == 0 {
		return strings.TrimSpace(prop.Text())
	}
	v := children[0]
	text := strings.TrimSpace(v.Text())
	switch v.Tag {
	case "bool":
		return text == "true"
	case "number":
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
		return text
	case "double":
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return text
	case "rect", "size", "point", "color", "font", "sizepolicy":
		fields := make(map[string]any)
		for _, a := range v.Attr {
			fields[a.Key] = attrValue(a.Value)
		}
		for _, f := range v.ChildElements() {
			fields[f.Tag] = attrValue(strings.TrimSpace(f.Text()))
		}
		return fields
	default:
		// string, enum, set, cstring, url and anything unknown keep their text
		return text
	}
}

func attrValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}
