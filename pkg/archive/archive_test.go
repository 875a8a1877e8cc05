package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type zipEntry struct {
	name string
	data []byte
}

func makeZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		ew, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", e.name, err)
		}
		if _, err := ew.Write(e.data); err != nil {
			t.Fatalf("failed to write entry %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func identity(data []byte) ([]byte, error) { return data, nil }

func TestIsImageName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"photo.png", true},
		{"photo.webp", true},
		{"nested/dir/photo.PNG", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"photo.gif", false},
		{"photo", false},
	}
	for _, tt := range tests {
		if got := IsImageName(tt.name); got != tt.want {
			t.Errorf("IsImageName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProcessFiltersEntries(t *testing.T) {
	zipData := makeZip(t, []zipEntry{
		{"a.jpg", []byte("jpg-data")},
		{"dir/", nil},
		{"dir/b.png", []byte("png-data")},
		{"readme.txt", []byte("not an image")},
		{"c.gif", []byte("wrong format")},
	})

	items, err := Process(zipData, identity)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "a.jpg" || items[1].Name != "b.png" {
		t.Errorf("unexpected names: %v, %v", items[0].Name, items[1].Name)
	}
	if !bytes.Equal(items[1].Data, []byte("png-data")) {
		t.Errorf("unexpected data for b.png: %q", items[1].Data)
	}
}

func TestProcessSkipsFailedImages(t *testing.T) {
	zipData := makeZip(t, []zipEntry{
		{"good.jpg", []byte("fine")},
		{"bad.jpg", []byte("broken")},
		{"also-good.png", []byte("fine too")},
	})

	transform := func(data []byte) ([]byte, error) {
		if bytes.Equal(data, []byte("broken")) {
			return nil, errors.New("decode failure")
		}
		return data, nil
	}

	items, err := Process(zipData, transform)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the failing image to be dropped, got %d items", len(items))
	}
	for _, item := range items {
		if item.Name == "bad.jpg" {
			t.Error("bad.jpg should have been skipped")
		}
	}
}

func TestProcessEmptyAndInvalid(t *testing.T) {
	items, err := Process(makeZip(t, nil), identity)
	if err != nil {
		t.Fatalf("Process returned error for empty zip: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items from empty zip, got %d", len(items))
	}

	if _, err := Process([]byte("this is not a zip"), identity); err == nil {
		t.Error("expected error for invalid zip data")
	}
}

func TestRoundTrip(t *testing.T) {
	zipData := makeZip(t, []zipEntry{
		{"a.jpg", []byte("aaa")},
		{"b.png", []byte("bbb")},
	})

	items, err := Process(zipData, func(data []byte) ([]byte, error) {
		return append([]byte("enhanced:"), data...), nil
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	out, err := Assemble(items)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("output is not a valid zip: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reader.File))
	}

	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["a.jpg"] || !names["b.png"] {
		t.Errorf("expected original names preserved, got %v", names)
	}
}

func TestAssembleDeduplicatesNames(t *testing.T) {
	items := []Item{
		{Name: "a.jpg", Data: []byte("one")},
		{Name: "a.jpg", Data: []byte("two")},
		{Name: "a.jpg", Data: []byte("three")},
		{Name: "b.png", Data: []byte("four")},
	}

	out, err := Assemble(items)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("output is not a valid zip: %v", err)
	}
	if len(reader.File) != len(items) {
		t.Fatalf("expected %d entries (no silent overwrite), got %d", len(items), len(reader.File))
	}

	want := []string{"a.jpg", "a_1.jpg", "a_2.jpg", "b.png"}
	for i, f := range reader.File {
		if f.Name != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, f.Name, want[i])
		}
	}
}

func TestUniqueNameGrowth(t *testing.T) {
	used := map[string]bool{}
	for i := 0; i < 5; i++ {
		name := uniqueName(used, "img.png")
		var want string
		if i == 0 {
			want = "img.png"
		} else {
			want = fmt.Sprintf("img_%d.png", i)
		}
		if name != want {
			t.Errorf("iteration %d: got %q, want %q", i, name, want)
		}
	}
}
