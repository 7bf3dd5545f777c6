package meta_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"tidy-go/internal/meta"
	"tidy-go/internal/tidy"
)

func box(typ string, payload []byte) []byte {
	b := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(b, uint32(8+len(payload)))
	copy(b[4:], typ)
	return append(b, payload...)
}

func pngChunk(typ string, data []byte) []byte {
	b := make([]byte, 8, 12+len(data))
	binary.BigEndian.PutUint32(b, uint32(len(data)))
	copy(b[4:], typ)
	b = append(b, data...)
	return append(b, 0, 0, 0, 0)
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func le32(n uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, n)
}

// tiffBlock is a big-endian TIFF header followed by one IFD, holding a Make
// tag when withTag is set.
func tiffBlock(withTag bool) []byte {
	b := []byte("MM\x00\x2A\x00\x00\x00\x08")
	if !withTag {
		return append(b, 0, 0, 0, 0, 0, 0)
	}
	b = append(b, 0x00, 0x01)
	b = append(b, 0x01, 0x0F, 0x00, 0x02, 0x00, 0x00, 0x00, 0x04, 'A', 'b', 'c', 0x00)
	return append(b, 0, 0, 0, 0)
}

func jpegWithApp1(tiff []byte) []byte {
	n := 2 + 6 + len(tiff)
	return concat([]byte{0xFF, 0xD8, 0xFF, 0xE1, byte(n >> 8), byte(n)}, []byte("Exif\x00\x00"), tiff, []byte{0xFF, 0xD9})
}

func TestPeeker_Peek(t *testing.T) {
	t.Parallel()

	pngSig := []byte("\x89PNG\r\n\x1a\n")
	ihdr := pngChunk("IHDR", make([]byte, 13))
	iend := pngChunk("IEND", nil)
	ftyp := box("ftyp", []byte("M4A \x00\x00\x00\x00"))

	id3Frame := concat([]byte("TIT2\x00\x00\x00\x06\x00\x00"), []byte("\x00Hello"))
	id3v2 := concat([]byte("ID3\x03\x00\x00\x00\x00\x00\x20"), id3Frame, make([]byte, 16), make([]byte, 64))

	comment := []byte("TITLE=Song")
	vorbis := concat(le32(0), le32(1), le32(uint32(len(comment))), comment)
	streamInfo := make([]byte, 34)

	title := box("\xa9nam", box("data", concat([]byte{0, 0, 0, 1}, []byte{0, 0, 0, 0}, []byte("Song"))))
	udta := box("udta", box("meta", concat(make([]byte, 4), box("ilst", title))))

	tests := []struct {
		name    string
		file    string
		content []byte
		label   string
		score   float64
		reason  string
	}{
		{
			name:    "jpeg with exif",
			file:    "a.jpg",
			content: jpegWithApp1(tiffBlock(true)),
			label:   tidy.PhotoLabel, score: 0.8, reason: "meta:exif",
		},
		{
			name:    "jpeg with empty exif block",
			file:    "a2.jpg",
			content: jpegWithApp1(tiffBlock(false)),
			reason:  "meta:none",
		},
		{
			name:    "jpeg without exif",
			file:    "b.jpeg",
			content: concat([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, []byte("JFIF\x00"), make([]byte, 9), []byte{0xFF, 0xDA, 0x00, 0x02}),
			reason:  "meta:none",
		},
		{
			name:    "png with exif chunk",
			file:    "c.png",
			content: concat(pngSig, ihdr, pngChunk("eXIf", tiffBlock(true)), iend),
			label:   tidy.PhotoLabel, score: 0.8, reason: "meta:exif",
		},
		{
			name:    "png without exif chunk",
			file:    "d.png",
			content: concat(pngSig, ihdr, iend),
			reason:  "meta:none",
		},
		{
			name:    "heic with exif item",
			file:    "d2.heic",
			content: concat(box("ftyp", []byte("heic\x00\x00\x00\x00")), box("mdat", concat([]byte{0, 0, 0, 6}, []byte("Exif\x00\x00"), tiffBlock(true)))),
			label:   tidy.PhotoLabel, score: 0.8, reason: "meta:exif",
		},
		{
			name:    "pdf with title",
			file:    "e.pdf",
			content: []byte("%PDF-1.4\n1 0 obj\n<< /Title (March receipt) >>\nendobj\n%%EOF\n"),
			label:   tidy.ReceiptLabel, score: 0.76, reason: "meta:pdfinfo",
		},
		{
			name:    "pdf with hex producer",
			file:    "f.pdf",
			content: []byte("%PDF-1.7\n<< /Producer <FEFF0041> >>\n"),
			label:   tidy.ReceiptLabel, score: 0.76, reason: "meta:pdfinfo",
		},
		{
			name:    "pdf with empty title",
			file:    "g.pdf",
			content: []byte("%PDF-1.4\n<< /Title () /Type /Catalog >>\n"),
			reason:  "meta:none",
		},
		{
			name:    "not really a pdf",
			file:    "h.pdf",
			content: []byte("hello /Title (x)"),
			reason:  "meta:none",
		},
		{
			name:    "mp3 with id3v2 title",
			file:    "i.mp3",
			content: id3v2,
			label:   tidy.MediaLabel, score: 0.8, reason: "meta:id3/mp4",
		},
		{
			name:    "mp3 with id3v1 trailer",
			file:    "j.mp3",
			content: concat(make([]byte, 300), []byte("TAG"), make([]byte, 125)),
			label:   tidy.MediaLabel, score: 0.8, reason: "meta:id3/mp4",
		},
		{
			name:    "mp3 without tags",
			file:    "j2.mp3",
			content: make([]byte, 512),
			reason:  "meta:none",
		},
		{
			name:    "flac with vorbis comment",
			file:    "k.flac",
			content: concat([]byte("fLaC"), []byte{0x00, 0x00, 0x00, 0x22}, streamInfo, []byte{0x84, 0x00, 0x00, byte(len(vorbis))}, vorbis),
			label:   tidy.MediaLabel, score: 0.8, reason: "meta:id3/mp4",
		},
		{
			name:    "flac without comment",
			file:    "l.flac",
			content: concat([]byte("fLaC"), []byte{0x80, 0x00, 0x00, 0x22}, streamInfo),
			reason:  "meta:none",
		},
		{
			name:    "m4a with title atom",
			file:    "m.m4a",
			content: concat(ftyp, box("moov", concat(box("mvhd", make([]byte, 8)), udta))),
			label:   tidy.MediaLabel, score: 0.8, reason: "meta:id3/mp4",
		},
		{
			name:    "mp4 without tags",
			file:    "n.mp4",
			content: concat(ftyp, box("moov", box("mvhd", make([]byte, 8)))),
			reason:  "meta:none",
		},
		{
			name:    "matroska has no readable tag block",
			file:    "o.mkv",
			content: concat([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 200)),
			reason:  "meta:none",
		},
		{
			name:    "unsupported extension",
			file:    "p.txt",
			content: []byte("ID3"),
			reason:  "meta:none",
		},
	}

	dir := t.TempDir()
	p := meta.NewPeeker(tidy.NewNopLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, tt.content, 0644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			label, score, reason := p.Peek(path)
			if label != tt.label || score != tt.score || reason != tt.reason {
				t.Errorf("Peek() = (%q, %v, %q), want (%q, %v, %q)", label, score, reason, tt.label, tt.score, tt.reason)
			}
		})
	}
}

func TestPeeker_PeekMissingFile(t *testing.T) {
	t.Parallel()
	p := meta.NewPeeker(tidy.NewNopLogger())
	label, score, reason := p.Peek(filepath.Join(t.TempDir(), "gone.jpg"))
	if label != "" || score != 0 || reason != "meta:none" {
		t.Errorf("Peek(missing) = (%q, %v, %q)", label, score, reason)
	}
}
