package receipt

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileType is the closed set of file types the scanner understands.
type FileType string

const (
	TypeUnknown FileType = "unknown"
	TypePDF     FileType = "pdf"
	TypeJPG     FileType = "jpg"
	TypePNG     FileType = "png"
	TypeGIF     FileType = "gif"
	TypeHEIC    FileType = "heic"
	TypeCSV     FileType = "csv"
)

// ParseFileType maps an extension token to a FileType. "jpeg" is an
// alias for jpg; anything unrecognized is unknown.
func ParseFileType(s string) FileType {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "pdf":
		return TypePDF
	case "jpg", "jpeg":
		return TypeJPG
	case "png":
		return TypePNG
	case "gif":
		return TypeGIF
	case "heic":
		return TypeHEIC
	case "csv":
		return TypeCSV
	default:
		return TypeUnknown
	}
}

// Suffix returns the filename suffix for the type, including the dot.
func (t FileType) Suffix() string {
	return "." + string(t)
}

// MIME returns the content type token sent to extraction services.
func (t FileType) MIME() string {
	switch t {
	case TypePDF:
		return "application/pdf"
	case TypeHEIC:
		return "image/heic"
	case TypeJPG:
		return "image/jpeg"
	case TypePNG, TypeGIF:
		return "image/" + string(t)
	default:
		return "application/octet-stream"
	}
}

// SniffType determines a file's type from its extension, falling back
// to the leading magic bytes when the extension is missing or
// unrecognized.
func SniffType(path string) FileType {
	if t := ParseFileType(filepath.Ext(path)); t != TypeUnknown {
		return t
	}

	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return TypeUnknown
	}
	return sniffMagic(header[:n])
}

func sniffMagic(header []byte) FileType {
	switch {
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return TypePNG
	case bytes.HasPrefix(header, []byte("\xff\xd8\xff")):
		return TypeJPG
	case bytes.HasPrefix(header, []byte("GIF87a")), bytes.HasPrefix(header, []byte("GIF89a")):
		return TypeGIF
	case bytes.HasPrefix(header, []byte("%PDF-")):
		return TypePDF
	case len(header) >= 12 && string(header[4:12]) == "ftypheic":
		return TypeHEIC
	default:
		return TypeUnknown
	}
}
