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

package executer

import (
	"strings"
)

// includeHelper is the global the lowered include calls go through.
const includeHelper = "__include"

// LowerIncludes rewrites every call include(args) in src into
// eval(__include(args)). The helper returns the included source, and the
// direct eval runs it in the caller's scope with the caller's this, so
// included code sees and mutates the caller's local variables. Strings,
// template literals, comments and regular expression literals are left
// untouched, as are member calls such as obj.include(x) and declarations
// named include.
func LowerIncludes(src string) string {
	if !strings.Contains(src, "include") {
		return src
	}
	var out strings.Builder
	out.Grow(len(src) + 32)
	lowerInto(&out, src)
	return out.String()
}

func lowerInto(out *strings.Builder, src string) {
	var (
		prev     byte   // last significant character
		prevWord string // last identifier or keyword
		i        int
	)
	for i < len(src) {
		c := src[i]

		if end := skipLiteral(src, i, prev, prevWord); end > i {
			out.WriteString(src[i:end])
			if c != '/' || (i+1 < len(src) && src[i+1] != '/' && src[i+1] != '*') {
				prev, prevWord = src[end-1], ""
			}
			i = end
			continue
		}

		if isIdentStart(c) {
			end := i + 1
			for end < len(src) && isIdentPart(src[end]) {
				end++
			}
			word := src[i:end]
			if word == "include" && prev != '.' && prevWord != "function" {
				if open := nextNonSpace(src, end); open < len(src) && src[open] == '(' {
					if closing := matchParen(src, open); closing > 0 {
						out.WriteString("eval(" + includeHelper + "(")
						lowerInto(out, src[open+1:closing])
						out.WriteString("))")
						prev, prevWord = ')', ""
						i = closing + 1
						continue
					}
				}
			}
			out.WriteString(word)
			prev, prevWord = word[len(word)-1], word
			i = end
			continue
		}

		out.WriteByte(c)
		if !isSpace(c) {
			prev, prevWord = c, ""
		}
		i++
	}
}

// skipLiteral returns the end of the string, template, comment or regex
// literal starting at i, or i when none starts there.
func skipLiteral(src string, i int, prev byte, prevWord string) int {
	switch c := src[i]; c {
	case '"', '\'':
		return skipQuoted(src, i, c)
	case '`':
		return skipQuoted(src, i, '`')
	case '/':
		if i+1 < len(src) && src[i+1] == '/' {
			if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
				return i + nl
			}
			return len(src)
		}
		if i+1 < len(src) && src[i+1] == '*' {
			if end := strings.Index(src[i+2:], "*/"); end >= 0 {
				return i + 2 + end + 2
			}
			return len(src)
		}
		if regexAllowed(prev, prevWord) {
			return skipRegex(src, i)
		}
	}
	return i
}

func skipQuoted(src string, i int, quote byte) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return j
			}
		}
	}
	return len(src)
}

func skipRegex(src string, i int) int {
	inClass := false
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				j++
				for j < len(src) && isIdentPart(src[j]) {
					j++
				}
				return j
			}
		case '\n':
			return j
		}
	}
	return len(src)
}

// regexAllowed reports whether a '/' after prev starts a regex literal
// rather than a division.
func regexAllowed(prev byte, prevWord string) bool {
	if prevWord != "" {
		switch prevWord {
		case "return", "typeof", "instanceof", "in", "of", "new", "delete", "void", "throw", "case", "do", "else", "yield", "await":
			return true
		}
		return false
	}
	if prev == 0 {
		return true
	}
	return strings.IndexByte("(,=:[!&|?{};+-*%<>~^", prev) >= 0
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1.
func matchParen(src string, open int) int {
	depth := 0
	var prev byte
	prevWord := ""
	for i := open; i < len(src); {
		if end := skipLiteral(src, i, prev, prevWord); end > i {
			prev, prevWord = src[end-1], ""
			i = end
			continue
		}
		c := src[i]
		if isIdentStart(c) {
			end := i + 1
			for end < len(src) && isIdentPart(src[end]) {
				end++
			}
			prev, prevWord = src[end-1], src[i:end]
			i = end
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		if !isSpace(c) {
			prev, prevWord = c, ""
		}
		i++
	}
	return -1
}

func nextNonSpace(src string, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
