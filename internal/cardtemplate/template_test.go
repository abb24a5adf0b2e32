package cardtemplate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		a       uint8
		wantErr bool
	}{
		{in: "#fff", r: 255, g: 255, b: 255, a: 255},
		{in: "#1f3a68", r: 0x1f, g: 0x3a, b: 0x68, a: 255},
		{in: "00000080", a: 0x80},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}
	for _, tt := range tests {
		c, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", tt.in, err)
			continue
		}
		if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.A != tt.a {
			t.Errorf("ParseColor(%q) = %+v", tt.in, c)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Default()
	cp := orig.Clone()
	cp.Front.Shapes[0].Color = "#000000"
	cp.Front.NameStyle.Size = 99
	cp.Palette.Primary = "#000000"
	cp.Back.Texts[0].Text = "changed"

	if orig.Front.Shapes[0].Color == "#000000" || orig.Front.NameStyle.Size == 99 ||
		orig.Palette.Primary == "#000000" || orig.Back.Texts[0].Text == "changed" {
		t.Fatal("Clone shares state with the original")
	}
}

func TestDefaultHasNoProblems(t *testing.T) {
	if probs := Default().Problems(); len(probs) > 0 {
		t.Fatalf("default template problems: %v", probs)
	}
}

func TestProblemsRequireRenderableValues(t *testing.T) {
	tpl := Default()
	tpl.Front.Shapes = append(tpl.Front.Shapes, Shape{Kind: ShapeRect, W: 10, H: 10})
	tpl.Back.Texts[0].Style.Size = 0
	probs := tpl.Problems()
	if len(probs) != 2 {
		t.Fatalf("problems = %v", probs)
	}
	if !strings.Contains(probs[0], "front.shapes[4]: colour is required") {
		t.Errorf("shape problem = %q", probs[0])
	}
	if !strings.Contains(probs[1], "back.texts[0]: text size must be positive") {
		t.Errorf("text problem = %q", probs[1])
	}
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonDoc := `{"name":"Plain","front":{"background":"#ffffff","layout":"simple",
		"name_style":{"x":10,"y":20,"size":9,"weight":"bold","color":"#000"},
		"details":{"x":5,"y":50,"size":6,"color":"#333","line_height":10}},
		"palette":{"primary":"#111","secondary":"#222","text":"#333"}}`
	yamlDoc := "id: stripes\nname: Stripes\nfront:\n  background: \"#ffffff\"\n  shapes:\n    - kind: rect\n      x: 0\n      y: 0\n      w: 153\n      h: 10\n      color: \"#ff0000\"\n      fill: true\n  details:\n    x: 4\n    y: 60\n    size: 6\n    color: \"#000\"\n    line_height: 9\n"
	os.WriteFile(filepath.Join(dir, "plain.json"), []byte(jsonDoc), 0o644)
	os.WriteFile(filepath.Join(dir, "stripes.yml"), []byte(yamlDoc), 0o644)
	os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644)

	store, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	ids := store.IDs()
	if len(ids) != 2 || ids[0] != "plain" || ids[1] != "stripes" {
		t.Fatalf("ids = %v", ids)
	}

	plain, _ := store.Get("plain")
	if plain.Front.NameStyle == nil || !plain.Front.NameStyle.Bold() {
		t.Errorf("name style not parsed: %+v", plain.Front.NameStyle)
	}
	if plain.Front.Details.LineHeight != 10 || plain.Front.Details.Y != 50 {
		t.Errorf("json details not flattened: %+v", plain.Front.Details)
	}

	stripes, _ := store.Get("stripes")
	if len(stripes.Front.Shapes) != 1 || stripes.Front.Shapes[0].Kind != ShapeRect || !stripes.Front.Shapes[0].Fill {
		t.Errorf("yaml shapes not parsed: %+v", stripes.Front.Shapes)
	}
	if stripes.Front.Details.X != 4 || stripes.Front.Details.LineHeight != 9 {
		t.Errorf("yaml details not inlined: %+v", stripes.Front.Details)
	}
}

func TestLoadRejectsBadColour(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"front":{"background":"#nothex"}}`), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected colour error")
	}
}

func TestStoreGetReturnsClone(t *testing.T) {
	s := NewStore()
	s.Put(Default())
	a, _ := s.Get("corporate")
	a.Front.Background = "#000000"
	b, _ := s.Get("corporate")
	if b.Front.Background == "#000000" {
		t.Fatal("store returned shared template")
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("err = %v, want ErrUnknownTemplate", err)
	}
}
