// pkg/archive/archive.go

// Package archive extracts image entries from an uploaded ZIP and packs
// enhanced results back into a downloadable one.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// Item is one enhanced image, keyed by its original entry name.
type Item struct {
	Name string
	Data []byte
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsImageName reports whether name carries an accepted image extension,
// case-insensitive.
func IsImageName(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Process walks the archive's entries in order, skipping directories and
// non-image entries, and runs transform on each image. A failing
// transform drops that single image and the walk continues; the caller
// decides what an empty result means. Entry names are flattened to
// their base name.
func Process(zipData []byte, transform func([]byte) ([]byte, error)) ([]Item, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var items []Item
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !IsImageName(entry.Name) {
			continue
		}

		data, err := readEntry(entry)
		if err != nil {
			logrus.WithError(err).WithField("entry", entry.Name).Warn("Skipping unreadable archive entry")
			continue
		}

		enhanced, err := transform(data)
		if err != nil {
			logrus.WithError(err).WithField("entry", entry.Name).Warn("Skipping image that failed enhancement")
			continue
		}

		items = append(items, Item{Name: path.Base(entry.Name), Data: enhanced})
	}

	return items, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Assemble packs items into a new ZIP, one entry per image. Duplicate
// names are de-duplicated with a numeric suffix so no image is silently
// dropped.
func Assemble(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	used := make(map[string]bool, len(items))
	for _, item := range items {
		name := uniqueName(used, item.Name)
		w, err := writer.Create(name)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(item.Data); err != nil {
			writer.Close()
			return nil, fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}

	return buf.Bytes(), nil
}

func uniqueName(used map[string]bool, name string) string {
	if !used[name] {
		used[name] = true
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
