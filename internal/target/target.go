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

// Package target holds the screen geometry of a rectangle selection. A
// selection is spanned by two corners, so its size is never negative.
package target

// Point is a screen position.
type Point struct {
	X, Y int
}

// Rect is a screen rectangle. Width and Height are never negative.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width < 1 || r.Height < 1
}

// FromCorners builds the rectangle spanned by two opposite corners.
func FromCorners(a, b Point) Rect {
	return Rect{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  max(a.X, b.X) - min(a.X, b.X),
		Height: max(a.Y, b.Y) - min(a.Y, b.Y),
	}
}
