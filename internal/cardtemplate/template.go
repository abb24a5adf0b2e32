// Package cardtemplate describes the declarative visual layout of a card.
//
// A template is a fixed, finite set of positioned primitives and style blocks
// for the front and back side. Coordinates are frame pixels (see package
// card). Templates are loaded from JSON or YAML and treated as immutable
// values once handed to an export job.
package cardtemplate

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ShapeKind enumerates the supported primitives.
type ShapeKind string

const (
	ShapeLine   ShapeKind = "line"
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
)

// Shape is one decorative primitive.
type Shape struct {
	Kind        ShapeKind `json:"kind" yaml:"kind"`
	X           float64   `json:"x" yaml:"x"`
	Y           float64   `json:"y" yaml:"y"`
	W           float64   `json:"w,omitempty" yaml:"w,omitempty"`
	H           float64   `json:"h,omitempty" yaml:"h,omitempty"`
	X2          float64   `json:"x2,omitempty" yaml:"x2,omitempty"` // line end
	Y2          float64   `json:"y2,omitempty" yaml:"y2,omitempty"`
	R           float64   `json:"r,omitempty" yaml:"r,omitempty"` // circle radius
	Color       string    `json:"color" yaml:"color"`
	Fill        bool      `json:"fill,omitempty" yaml:"fill,omitempty"`
	StrokeWidth float64   `json:"stroke_width,omitempty" yaml:"stroke_width,omitempty"`
}

// TextStyle positions and styles one text block.
type TextStyle struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Size   float64 `json:"size" yaml:"size"`     // frame pixels
	Weight string  `json:"weight" yaml:"weight"` // normal, bold
	Color  string  `json:"color" yaml:"color"`
	Align  string  `json:"align,omitempty" yaml:"align,omitempty"` // left, center, right
}

// Bold reports whether the style asks for the bold face.
func (s TextStyle) Bold() bool {
	w := strings.ToLower(s.Weight)
	return w == "bold" || w == "700" || w == "800" || w == "900"
}

// DetailsStyle lays out the secondary record fields as a label/value list.
type DetailsStyle struct {
	TextStyle  `yaml:",inline"`
	LineHeight float64 `json:"line_height" yaml:"line_height"`
}

// PhotoFrame anchors the photo's top-left corner. Its size is fixed by the
// card geometry and is not configurable.
type PhotoFrame struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// StaticText is a fixed line printed on a side, e.g. a return address on the
// back.
type StaticText struct {
	Text  string    `json:"text" yaml:"text"`
	Style TextStyle `json:"style" yaml:"style"`
}

// Side configures one face of the card.
type Side struct {
	Background      string        `json:"background" yaml:"background"`
	Layout          string        `json:"layout" yaml:"layout"`
	Shapes          []Shape       `json:"shapes,omitempty" yaml:"shapes,omitempty"`
	NameStyle       *TextStyle    `json:"name_style,omitempty" yaml:"name_style,omitempty"`
	EmployeeIDStyle *TextStyle    `json:"employee_id_style,omitempty" yaml:"employee_id_style,omitempty"`
	Details         *DetailsStyle `json:"details,omitempty" yaml:"details,omitempty"`
	Photo           *PhotoFrame   `json:"photo,omitempty" yaml:"photo,omitempty"`
	Texts           []StaticText  `json:"texts,omitempty" yaml:"texts,omitempty"`
}

// Palette is the template's named colour set.
type Palette struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
	Text      string `json:"text" yaml:"text"`
	Accent    string `json:"accent,omitempty" yaml:"accent,omitempty"`
}

// Template is the full two-sided descriptor.
type Template struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Front   *Side    `json:"front,omitempty" yaml:"front,omitempty"`
	Back    *Side    `json:"back,omitempty" yaml:"back,omitempty"`
	Palette *Palette `json:"palette,omitempty" yaml:"palette,omitempty"`
}

// Clone returns a deep copy; a job keeps its clone even if the store swaps
// the template underneath.
func (t Template) Clone() Template {
	out := t
	out.Front = t.Front.clone()
	out.Back = t.Back.clone()
	if t.Palette != nil {
		p := *t.Palette
		out.Palette = &p
	}
	return out
}

func (s *Side) clone() *Side {
	if s == nil {
		return nil
	}
	out := *s
	out.Shapes = append([]Shape(nil), s.Shapes...)
	out.Texts = append([]StaticText(nil), s.Texts...)
	if s.NameStyle != nil {
		v := *s.NameStyle
		out.NameStyle = &v
	}
	if s.EmployeeIDStyle != nil {
		v := *s.EmployeeIDStyle
		out.EmployeeIDStyle = &v
	}
	if s.Details != nil {
		v := *s.Details
		out.Details = &v
	}
	if s.Photo != nil {
		v := *s.Photo
		out.Photo = &v
	}
	return &out
}

// SideFor returns the configuration for side name "front" or "back".
func (t *Template) SideFor(name string) *Side {
	switch name {
	case "front":
		return t.Front
	case "back":
		return t.Back
	}
	return nil
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Problems lists colour and primitive errors in the template, including
// values the renderer cannot default. Missing sides and palette are reported
// by the export quality gates, not here.
func (t Template) Problems() []string {
	var out []string
	check := func(where, c string) {
		if c == "" {
			return
		}
		if _, err := ParseColor(c); err != nil {
			out = append(out, where+": "+err.Error())
		}
	}
	style := func(where string, ts TextStyle) {
		check(where, ts.Color)
		if ts.Size <= 0 {
			out = append(out, where+": text size must be positive")
		}
	}
	for _, side := range []struct {
		name string
		s    *Side
	}{{"front", t.Front}, {"back", t.Back}} {
		if side.s == nil {
			continue
		}
		check(side.name+".background", side.s.Background)
		for i, sh := range side.s.Shapes {
			where := fmt.Sprintf("%s.shapes[%d]", side.name, i)
			if sh.Color == "" {
				out = append(out, where+": colour is required")
			}
			check(where, sh.Color)
			switch sh.Kind {
			case ShapeLine, ShapeRect, ShapeCircle:
			default:
				out = append(out, fmt.Sprintf("%s: unknown kind %q", where, sh.Kind))
			}
		}
		if ts := side.s.NameStyle; ts != nil {
			style(side.name+".name", *ts)
		}
		if ts := side.s.EmployeeIDStyle; ts != nil {
			style(side.name+".employee_id", *ts)
		}
		if side.s.Details != nil {
			style(side.name+".details", side.s.Details.TextStyle)
		}
		for i, st := range side.s.Texts {
			style(fmt.Sprintf("%s.texts[%d]", side.name, i), st.Style)
		}
	}
	if t.Palette != nil {
		check("palette.primary", t.Palette.Primary)
		check("palette.secondary", t.Palette.Secondary)
		check("palette.text", t.Palette.Text)
		check("palette.accent", t.Palette.Accent)
	}
	return out
}
