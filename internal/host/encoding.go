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

package host

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is a text encoding selectable from scripts.
type Encoding int

const (
	EncodingNative Encoding = iota
	ASCII
	Latin1
	UTF8
)

var encodingNames = map[string]int{
	"Native": int(EncodingNative),
	"Ascii":  int(ASCII),
	"Latin1": int(Latin1),
	"UTF8":   int(UTF8),
}

// Encode converts text to bytes. Characters the encoding cannot represent
// are replaced.
func (e Encoding) Encode(text string) ([]byte, error) {
	switch e {
	case ASCII:
		var buf bytes.Buffer
		for _, r := range text {
			if r < utf8.RuneSelf {
				buf.WriteRune(r)
			} else {
				buf.WriteByte('?')
			}
		}
		return buf.Bytes(), nil
	case Latin1:
		return encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(text))
	default:
		return unicode.UTF8.NewEncoder().Bytes([]byte(text))
	}
}

// Decode converts bytes to text. Invalid input is replaced with U+FFFD.
func (e Encoding) Decode(data []byte) (string, error) {
	switch e {
	case ASCII:
		var sb strings.Builder
		for _, c := range data {
			if c < utf8.RuneSelf {
				sb.WriteByte(c)
			} else {
				sb.WriteRune(utf8.RuneError)
			}
		}
		return sb.String(), nil
	case Latin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		return string(out), err
	default:
		out, err := unicode.UTF8.NewDecoder().Bytes(data)
		return string(out), err
	}
}
