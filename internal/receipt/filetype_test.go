package receipt

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseFileType", func() {
	It("maps known extensions", func() {
		Expect(ParseFileType(".pdf")).To(Equal(TypePDF))
		Expect(ParseFileType("png")).To(Equal(TypePNG))
		Expect(ParseFileType(".gif")).To(Equal(TypeGIF))
		Expect(ParseFileType(".heic")).To(Equal(TypeHEIC))
		Expect(ParseFileType(".csv")).To(Equal(TypeCSV))
	})

	It("treats jpeg as an alias for jpg", func() {
		Expect(ParseFileType(".jpeg")).To(Equal(TypeJPG))
		Expect(ParseFileType(".jpg")).To(Equal(TypeJPG))
	})

	It("returns unknown for anything else", func() {
		Expect(ParseFileType(".txt")).To(Equal(TypeUnknown))
		Expect(ParseFileType("")).To(Equal(TypeUnknown))
	})
})

var _ = Describe("SniffType", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	write := func(name string, data []byte) string {
		path := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())
		return path
	}

	When("the extension is recognized", func() {
		It("does not look at the content", func() {
			path := write("receipt.pdf", []byte("not really a pdf"))
			Expect(SniffType(path)).To(Equal(TypePDF))
		})
	})

	When("the extension is missing", func() {
		It("detects PNG from its signature", func() {
			path := write("mystery", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...))
			Expect(SniffType(path)).To(Equal(TypePNG))
		})

		It("detects JPEG from its signature", func() {
			path := write("mystery", append([]byte("\xff\xd8\xff"), make([]byte, 16)...))
			Expect(SniffType(path)).To(Equal(TypeJPG))
		})

		It("detects GIF from its signature", func() {
			path := write("mystery", append([]byte("GIF89a"), make([]byte, 16)...))
			Expect(SniffType(path)).To(Equal(TypeGIF))
		})

		It("detects PDF from its signature", func() {
			path := write("mystery", append([]byte("%PDF-1.7"), make([]byte, 16)...))
			Expect(SniffType(path)).To(Equal(TypePDF))
		})

		It("detects HEIC from its ftyp box", func() {
			header := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
			path := write("mystery", append(header, make([]byte, 16)...))
			Expect(SniffType(path)).To(Equal(TypeHEIC))
		})

		It("returns unknown otherwise", func() {
			path := write("mystery", []byte("plain text, nothing to see"))
			Expect(SniffType(path)).To(Equal(TypeUnknown))
		})
	})
})

var _ = Describe("FileType", func() {
	It("exposes a dotted suffix", func() {
		Expect(TypeJPG.Suffix()).To(Equal(".jpg"))
		Expect(TypePDF.Suffix()).To(Equal(".pdf"))
	})

	It("exposes a MIME type", func() {
		Expect(TypeJPG.MIME()).To(Equal("image/jpeg"))
		Expect(TypePNG.MIME()).To(Equal("image/png"))
		Expect(TypePDF.MIME()).To(Equal("application/pdf"))
		Expect(TypeHEIC.MIME()).To(Equal("image/heic"))
	})
})
