// Package meta peeks at container metadata without decoding file contents.
//
// Images are checked for EXIF tags (JPEG APP1 segments, PNG eXIf chunks and
// the Exif item of HEIC files), PDFs for a populated info dictionary, and
// audio or video containers for an ID3, MP4 or Vorbis tag block.
package meta

import (
	"bytes"
	"encoding/binary"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rwcarlsen/goexif/exif"

	"tidy-go/internal/tidy"
)

// windowSize bounds how much of a PDF's head and tail is read.
const windowSize = 64 << 10

// exifLimit covers a maximal APP1 segment plus the segments before it.
const exifLimit = 2 * windowSize

const noneReason = "meta:none"

var (
	pdfInfo      = regexp.MustCompile(`/(Title|Producer|Creator)\s*(\((?:[^)\\]|\\.)+\)|<[0-9A-Fa-f]+>)`)
	exifHeader   = []byte("Exif\x00\x00")
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
)

// Peeker implements tidy.MetadataPeeker over the local filesystem.
type Peeker struct {
	logger tidy.Logger
}

var _ tidy.MetadataPeeker = (*Peeker)(nil)

func NewPeeker(logger tidy.Logger) *Peeker {
	return &Peeker{logger: logger}
}

// Peek never fails. Unreadable or unrecognized files yield ("", 0, "meta:none").
func (p *Peeker) Peek(path string) (string, float64, string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".heic",
		".pdf",
		".mp3", ".m4a", ".flac", ".mp4", ".mkv", ".mov":
	default:
		return "", 0, noneReason
	}

	f, err := os.Open(path)
	if err != nil {
		p.logger.Debug("metadata peek skipped", "path", path, "error", err)
		return "", 0, noneReason
	}
	defer f.Close()

	switch ext {
	case ".jpg", ".jpeg", ".png", ".heic":
		ok, err := hasExif(f, ext)
		if err != nil {
			p.logger.Debug("no exif", "path", path, "error", err)
		}
		if ok {
			return tidy.PhotoLabel, 0.8, "meta:exif"
		}
	case ".pdf":
		ok, err := hasPDFInfo(f)
		if err != nil {
			p.logger.Debug("no pdf info", "path", path, "error", err)
		}
		if ok {
			return tidy.ReceiptLabel, 0.76, "meta:pdfinfo"
		}
	default:
		m, err := tag.ReadFrom(f)
		if err != nil {
			p.logger.Debug("no media tags", "path", path, "error", err)
			break
		}
		if len(m.Raw()) > 0 {
			return tidy.MediaLabel, 0.8, "meta:id3/mp4"
		}
	}
	return "", 0, noneReason
}

// hasExif reports whether the image carries at least one EXIF tag.
func hasExif(f *os.File, ext string) (bool, error) {
	var r io.Reader = io.LimitReader(f, exifLimit)
	if ext != ".jpg" && ext != ".jpeg" {
		head, err := readAt(f, 0, exifLimit)
		if err != nil {
			return false, err
		}
		payload := tiffPayload(head, ext)
		if payload == nil {
			return false, nil
		}
		r = bytes.NewReader(payload)
	}

	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return false, err
	}
	return len(x.Tiff.Dirs) > 0 && len(x.Tiff.Dirs[0].Tags) > 0, nil
}

// tiffPayload returns the TIFF-encoded EXIF block of a PNG or HEIC head.
func tiffPayload(head []byte, ext string) []byte {
	if ext == ".png" {
		return pngChunk(head, "eXIf")
	}
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return nil
	}
	i := bytes.Index(head, exifHeader)
	if i < 0 {
		return nil
	}
	return head[i+len(exifHeader):]
}

// pngChunk returns the data of the first chunk of type typ before IEND.
func pngChunk(b []byte, typ string) []byte {
	if !bytes.HasPrefix(b, pngSignature) {
		return nil
	}
	for i := len(pngSignature); i+8 <= len(b); {
		n := int(binary.BigEndian.Uint32(b[i:]))
		name := string(b[i+4 : i+8])
		if name == "IEND" || n < 0 || i+8+n > len(b) {
			return nil
		}
		if name == typ {
			return b[i+8 : i+8+n]
		}
		i += 12 + n
	}
	return nil
}

// hasPDFInfo looks for a non-empty Title, Producer or Creator entry. The
// info dictionary usually sits near the trailer, so the tail is checked too.
func hasPDFInfo(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	head, err := readAt(f, 0, windowSize)
	if err != nil {
		return false, err
	}
	if http.DetectContentType(head) != "application/pdf" {
		return false, nil
	}
	if pdfInfo.Match(head) {
		return true, nil
	}
	tail, err := readAt(f, info.Size()-windowSize, windowSize)
	if err != nil {
		return false, err
	}
	return pdfInfo.Match(tail), nil
}

// readAt reads at most n bytes starting at off.
func readAt(r io.ReaderAt, off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.ReadAt(buf, max(off, 0))
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}
