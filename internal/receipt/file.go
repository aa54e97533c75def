// Package receipt handles the payment receipt attached to a registration:
// content sniffing, renaming for upload, previews and on-disk storage.
package receipt

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// File is an attached receipt held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile builds a File, sniffing the content type from the data. The
// declared type is only used when sniffing finds nothing more specific.
func NewFile(name, declared string, data []byte) File {
	contentType := mimetype.Detect(data).String()
	if strings.HasPrefix(contentType, "application/octet-stream") && declared != "" {
		contentType = declared
	}
	return File{Name: name, ContentType: contentType, Data: data}
}

// IsImage reports whether the receipt is an image and can be previewed.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// Size is the length of the receipt in bytes.
func (f File) Size() int {
	return len(f.Data)
}

// HumanSize formats the receipt size for display, e.g. "12 kB".
func (f File) HumanSize() string {
	return humanize.Bytes(uint64(len(f.Data)))
}

var extPattern = regexp.MustCompile(`\.[a-zA-Z0-9]+$`)

// Ext returns the original file extension including the dot, or "".
func (f File) Ext() string {
	return extPattern.FindString(f.Name)
}

// RenameTo returns the upload name for the receipt: base followed by the
// original extension.
func (f File) RenameTo(base string) string {
	return base + f.Ext()
}
