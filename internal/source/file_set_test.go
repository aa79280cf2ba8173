package source

import "testing"

func TestPositionResolution(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.em", []byte("first\nsecond\nthird"))

	cases := []struct {
		offset uint32
		line   uint32
		col    uint32
	}{
		{0, 1, 1},
		{4, 1, 5},
		{6, 2, 1},
		{13, 3, 1},
		{17, 3, 5},
	}
	for _, c := range cases {
		got := fs.Position(id, c.offset)
		if got.Line != c.line || got.Col != c.col {
			t.Fatalf("offset %d = %d:%d, want %d:%d", c.offset, got.Line, got.Col, c.line, c.col)
		}
	}
}

func TestCRLFNormalization(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("win.em", mustNormalize([]byte("a\r\nb\r\nc")), 0)
	f := fs.Get(id)
	if string(f.Content) != "a\nb\nc" {
		t.Fatalf("content = %q", f.Content)
	}
}

func mustNormalize(b []byte) []byte {
	out, _ := normalizeCRLF(b)
	return out
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	got := a.Cover(b)
	if got.Start != 5 || got.End != 20 {
		t.Fatalf("cover = %v", got)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("cross-file cover changed the span")
	}
}

func TestLookup(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("dir/x.em", []byte("x"))
	got, ok := fs.Lookup("dir/x.em")
	if !ok || got != id {
		t.Fatalf("lookup = %v, %v", got, ok)
	}
	if _, ok := fs.Lookup("missing.em"); ok {
		t.Fatalf("lookup invented a file")
	}
}
