package receipt

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func collect(scanner *Scanner) ([]*Record, error) {
	seq, err := scanner.Scan()
	if err != nil {
		return nil, err
	}
	var items []*Record
	for rec := range seq {
		items = append(items, rec)
	}
	return items, nil
}

var _ = Describe("Scanner", func() {
	var (
		tmpDir  string
		scanner *Scanner
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeFile := func(name, content string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644)).To(Succeed())
	}

	writeLedger := func(rows ...string) {
		text := "date,name,total,tax,confidence,filename\n"
		for _, row := range rows {
			text += row + "\n"
		}
		writeFile(LedgerFilename, text)
	}

	Describe("Load", func() {
		When("there is no ledger file", func() {
			BeforeEach(func() {
				scanner = NewScanner(tmpDir, 0.8)
			})

			It("starts with an empty baseline", func() {
				Expect(scanner.Load()).To(Succeed())
				Expect(scanner.Known()).To(BeEmpty())
			})
		})

		When("the ledger is malformed", func() {
			BeforeEach(func() {
				writeFile(LedgerFilename, "foo,bar\n")
				scanner = NewScanner(tmpDir, 0.8)
			})

			It("fails with a format error", func() {
				err := scanner.Load()
				var formatErr *FormatError
				Expect(errors.As(err, &formatErr)).To(BeTrue())
			})

			It("fails Scan before any work is yielded", func() {
				_, err := scanner.Scan()
				Expect(err).To(HaveOccurred())
			})
		})

		It("loads at most once", func() {
			writeLedger("2024-01-15,bestbuy,123.45,10.12,0.9,a.jpg")
			scanner = NewScanner(tmpDir, 0.8)
			Expect(scanner.Load()).To(Succeed())

			// A later rewrite must not be picked up by the same Scanner.
			writeLedger()
			Expect(scanner.Load()).To(Succeed())
			Expect(scanner.Known()).To(HaveLen(1))
		})
	})

	Describe("Scan", func() {
		var (
			items []*Record
			err   error
		)

		JustBeforeEach(func() {
			items, err = collect(scanner)
		})

		When("a file is not in the ledger", func() {
			BeforeEach(func() {
				writeFile("receipt.pdf", "%PDF-1.7 pretend")
				scanner = NewScanner(tmpDir, 0.8)
			})

			It("yields one fresh work item", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
			})

			It("sets the filename and filetype, leaving fields unset", func() {
				rec := items[0]
				Expect(rec.Filename).To(Equal("receipt.pdf"))
				Expect(rec.Filetype).To(Equal(TypePDF))
				Expect(rec.Date.IsZero()).To(BeTrue())
				Expect(math.IsNaN(rec.Total)).To(BeTrue())
				Expect(rec.Confidence).To(BeZero())
			})
		})

		When("a file is known with confidence above the threshold", func() {
			BeforeEach(func() {
				writeFile("a.jpg", "jpg bytes")
				writeLedger("2024-01-15,bestbuy,123.45,10.12,0.9,a.jpg")
				scanner = NewScanner(tmpDir, 0.5)
			})

			It("yields no work items", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
			})

			It("counts the skip", func() {
				Expect(scanner.Skipped()).To(Equal(1))
			})
		})

		When("a file is known with confidence below the threshold", func() {
			BeforeEach(func() {
				writeFile("a.jpg", "jpg bytes")
				writeLedger("2024-01-15,bestbuy,123.45,10.12,0.9,a.jpg")
				scanner = NewScanner(tmpDir, 0.95)
			})

			It("yields exactly the existing record", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
				Expect(items[0]).To(BeIdenticalTo(scanner.Known()["a.jpg"]))
			})

			It("preserves the prior extraction", func() {
				Expect(items[0].Name).To(Equal("bestbuy"))
				Expect(items[0].Date).To(Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
				Expect(items[0].Confidence).To(Equal(0.9))
			})
		})

		When("the directory contains the ledger and unknown files", func() {
			BeforeEach(func() {
				writeFile("receipt.png", "png bytes")
				writeFile("notes.txt", "not a receipt")
				writeLedger()
				scanner = NewScanner(tmpDir, 0.8)
			})

			It("skips both", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
				Expect(items[0].Filename).To(Equal("receipt.png"))
			})
		})

		When("the directory contains a subdirectory", func() {
			BeforeEach(func() {
				Expect(os.Mkdir(filepath.Join(tmpDir, "nested.jpg"), 0755)).To(Succeed())
				scanner = NewScanner(tmpDir, 0.8)
			})

			It("skips it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
			})
		})
	})

	Describe("Merge", func() {
		BeforeEach(func() {
			writeLedger(
				"2024-01-15,bestbuy,123.45,10.12,0.4,a.jpg",
				"2024-02-01,walmart,50,4.5,0.95,b.jpg",
			)
			scanner = NewScanner(tmpDir, 0.8)
			Expect(scanner.Load()).To(Succeed())
		})

		It("overlays results onto the baseline by filename", func() {
			updated := &Record{Filename: "a.jpg", Filetype: TypeJPG, Name: "bestbuy", Confidence: 0.97}
			merged := scanner.Merge(map[string]*Record{"a.jpg": updated})

			Expect(merged).To(HaveLen(2))
			Expect(merged["a.jpg"]).To(BeIdenticalTo(updated))
			Expect(merged["b.jpg"].Name).To(Equal("walmart"))
		})

		It("drops the superseded entry when a result was renamed", func() {
			renamed := &Record{Filename: "01152024_bestbuy_deadbeef.jpg", Filetype: TypeJPG, Name: "bestbuy", Confidence: 0.97}
			merged := scanner.Merge(map[string]*Record{"a.jpg": renamed})

			Expect(merged).To(HaveLen(2))
			Expect(merged).NotTo(HaveKey("a.jpg"))
			Expect(merged).To(HaveKey("01152024_bestbuy_deadbeef.jpg"))
		})

		It("keeps the baseline when there are no results", func() {
			merged := scanner.Merge(nil)
			Expect(merged).To(HaveLen(2))
		})
	})
})
