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
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/dop251/goja"
)

// Image is the native side of a script Image object.
type Image struct {
	img *image.NRGBA
}

// Mirror directions.
const (
	MirrorHorizontal = 1
	MirrorVertical   = 2
)

// Filters applicable with Image.applyFilter.
const (
	FilterBlur = iota
	FilterSharpen
	FilterGrayscale
	FilterInvert
	FilterBrightness
	FilterContrast
	FilterGamma
	FilterSaturation
	FilterRotate90
	FilterRotate180
	FilterRotate270
	FilterTranspose
	FilterTransverse
	FilterResize
	FilterEmboss
)

var filterNames = map[string]int{
	"Blur":       FilterBlur,
	"Sharpen":    FilterSharpen,
	"Grayscale":  FilterGrayscale,
	"Invert":     FilterInvert,
	"Brightness": FilterBrightness,
	"Contrast":   FilterContrast,
	"Gamma":      FilterGamma,
	"Saturation": FilterSaturation,
	"Rotate90":   FilterRotate90,
	"Rotate180":  FilterRotate180,
	"Rotate270":  FilterRotate270,
	"Transpose":  FilterTranspose,
	"Transverse": FilterTransverse,
	"Resize":     FilterResize,
	"Emboss":     FilterEmboss,
}

// applyFilter runs filter with its options. Options are read by name and
// missing ones take their defaults.
func applyFilter(img image.Image, filter int, opts map[string]any) (*image.NRGBA, error) {
	switch filter {
	case FilterBlur:
		return imaging.Blur(img, optFloat(opts, "sigma", 1)), nil
	case FilterSharpen:
		return imaging.Sharpen(img, optFloat(opts, "sigma", 1)), nil
	case FilterGrayscale:
		return imaging.Grayscale(img), nil
	case FilterInvert:
		return imaging.Invert(img), nil
	case FilterBrightness:
		return imaging.AdjustBrightness(img, optFloat(opts, "percentage", 0)), nil
	case FilterContrast:
		return imaging.AdjustContrast(img, optFloat(opts, "percentage", 0)), nil
	case FilterGamma:
		return imaging.AdjustGamma(img, optFloat(opts, "gamma", 1)), nil
	case FilterSaturation:
		return imaging.AdjustSaturation(img, optFloat(opts, "percentage", 0)), nil
	case FilterRotate90:
		return imaging.Rotate90(img), nil
	case FilterRotate180:
		return imaging.Rotate180(img), nil
	case FilterRotate270:
		return imaging.Rotate270(img), nil
	case FilterTranspose:
		return imaging.Transpose(img), nil
	case FilterTransverse:
		return imaging.Transverse(img), nil
	case FilterResize:
		w := int(optFloat(opts, "width", 0))
		h := int(optFloat(opts, "height", 0))
		if w < 0 || h < 0 || (w == 0 && h == 0) {
			return nil, Errorf(KindFilter, "Resize needs a positive width or height")
		}
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	case FilterEmboss:
		return imaging.Convolve3x3(img, [9]float64{-1, -1, 0, -1, 1, 1, 0, 1, 1}, nil), nil
	}
	return nil, Errorf(KindFilter, "Unknown filter %d", filter)
}

// NewImage wraps img in a script Image object.
func (b *Bridge) NewImage(img *image.NRGBA) *goja.Object {
	return b.Instantiate("Image", &Image{img: img})
}

func (b *Bridge) imageMethod(name string, min, max int, fn func(call goja.FunctionCall, im *Image) (goja.Value, error)) Func {
	return Func{Name: name, MinArgs: min, MaxArgs: max, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		im, err := self[*Image](b, call, "Image")
		if err != nil {
			return nil, err
		}
		return fn(call, im)
	}}
}

func (b *Bridge) registerImage() error {
	ctor, err := b.DefineClass(Class{
		Name:    "Image",
		MinArgs: 0,
		MaxArgs: 2,
		New: func(call goja.ConstructorCall) (any, error) {
			switch len(call.Arguments) {
			case 0:
				return &Image{img: image.NewNRGBA(image.Rect(0, 0, 0, 0))}, nil
			case 1:
				other, ok := Native[*Image](b, call.Arguments[0])
				if !ok {
					return nil, Errorf(KindParameterType, "Image expects an Image or a width and height")
				}
				return &Image{img: imaging.Clone(other.img)}, nil
			default:
				w, h := int(call.Arguments[0].ToInteger()), int(call.Arguments[1].ToInteger())
				if w < 0 || h < 0 {
					return nil, Errorf(KindParameterType, "invalid image size %dx%d", w, h)
				}
				return &Image{img: imaging.New(w, h, color.Transparent)}, nil
			}
		},
		Methods: []Func{
			b.imageMethod("width", 0, 0, func(_ goja.FunctionCall, im *Image) (goja.Value, error) {
				return b.vm.ToValue(im.img.Bounds().Dx()), nil
			}),
			b.imageMethod("height", 0, 0, func(_ goja.FunctionCall, im *Image) (goja.Value, error) {
				return b.vm.ToValue(im.img.Bounds().Dy()), nil
			}),
			b.imageMethod("size", 0, 0, func(_ goja.FunctionCall, im *Image) (goja.Value, error) {
				return b.construct("Size", im.img.Bounds().Dx(), im.img.Bounds().Dy())
			}),
			b.imageMethod("pixel", 2, 2, func(call goja.FunctionCall, im *Image) (goja.Value, error) {
				x, y := argInt(call, 0, 0), argInt(call, 1, 0)
				if !(image.Point{X: x, Y: y}).In(im.img.Bounds()) {
					return nil, Errorf(KindParameterType, "pixel %d,%d is outside the image", x, y)
				}
				return b.NewColor(im.img.NRGBAAt(x, y))
			}),
			b.imageMethod("setPixel", 3, 3, func(call goja.FunctionCall, im *Image) (goja.Value, error) {
				x, y := argInt(call, 0, 0), argInt(call, 1, 0)
				c, ok := call.Argument(2).(*goja.Object)
				if !ok {
					return nil, Errorf(KindParameterType, "setPixel expects a Color")
				}
				if !(image.Point{X: x, Y: y}).In(im.img.Bounds()) {
					return nil, Errorf(KindParameterType, "pixel %d,%d is outside the image", x, y)
				}
				im.img.SetNRGBA(x, y, colorOf(c))
				return call.This, nil
			}),
			b.imageMethod("mirror", 1, 1, func(call goja.FunctionCall, im *Image) (goja.Value, error) {
				dir := argInt(call, 0, 0)
				out := im.img
				if dir&MirrorHorizontal != 0 {
					out = imaging.FlipH(out)
				}
				if dir&MirrorVertical != 0 {
					out = imaging.FlipV(out)
				}
				if out == im.img {
					out = imaging.Clone(out)
				}
				return b.NewImage(out), nil
			}),
			b.imageMethod("applyFilter", 1, 2, func(call goja.FunctionCall, im *Image) (goja.Value, error) {
				out, err := applyFilter(im.img, argInt(call, 0, -1), optionsOf(call.Argument(1)))
				if err != nil {
					return nil, err
				}
				return b.NewImage(out), nil
			}),
			b.imageMethod("clone", 0, 0, func(_ goja.FunctionCall, im *Image) (goja.Value, error) {
				return b.NewImage(imaging.Clone(im.img)), nil
			}),
			b.imageMethod("equals", 1, 1, func(call goja.FunctionCall, im *Image) (goja.Value, error) {
				other, ok := Native[*Image](b, call.Argument(0))
				equal := ok && im.img.Bounds().Size() == other.img.Bounds().Size() && bytes.Equal(im.img.Pix, other.img.Pix)
				return b.vm.ToValue(equal), nil
			}),
			b.imageMethod("saveToFile", 1, 1, func(call goja.FunctionCall, im *Image) (goja.Value, error) {
				filename := argString(call, 0)
				if err := imaging.Save(im.img, filename); err != nil {
					return nil, Errorf(KindSaveImage, "Unable to save image %s: %v", filename, err)
				}
				return call.This, nil
			}),
		},
		Statics: []Func{
			{Name: "loadFromFile", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				filename := argString(call, 0)
				img, err := imaging.Open(filename)
				if err != nil {
					return nil, Errorf(KindLoadImage, "Unable to load image %s: %v", filename, err)
				}
				return b.NewImage(imaging.Clone(img)), nil
			}},
		},
	})
	if err != nil {
		return err
	}
	if err := ctor.Set("Horizontal", MirrorHorizontal); err != nil {
		return err
	}
	if err := ctor.Set("Vertical", MirrorVertical); err != nil {
		return err
	}
	return ctor.Set("Filter", enumObject(b.vm, filterNames))
}
