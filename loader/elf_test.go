package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/birchlake/pcodebind/image"
	"github.com/birchlake/pcodebind/loader"
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid x86-64 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				// push rbp / ret
				createMinimalX8664ELF(elfPath, 0x400000, 0x400080, []byte{0x55, 0xC3})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint64(0x400080)))
			})

			It("should identify the 64-bit language", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Language).To(Equal("x86:LE:64:default"))
			})

			It("should map segments into image sections", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Image.Sections).NotTo(BeEmpty())
			})

			It("should make the loaded code readable through the image", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				buf := make([]byte, 2)
				n, err := prog.Image.Read(0x400000, buf)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(2))
				Expect(buf).To(Equal([]byte{0x55, 0xC3}))
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				err := os.WriteFile(notElfPath, []byte("not an elf file"), 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(notElfPath)
				Expect(err).To(HaveOccurred())
			})

			It("should return error for empty file", func() {
				emptyPath := filepath.Join(tempDir, "empty.elf")
				err := os.WriteFile(emptyPath, []byte{}, 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with an unsupported machine type", func() {
			It("should return error for an ARM64 ELF", func() {
				elfPath := filepath.Join(tempDir, "arm64.elf")
				createMinimalARM64ELF(elfPath)

				_, err := loader.Load(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("unsupported machine"))
			})
		})
	})

	Describe("Section permissions", func() {
		It("should carry the segment flags into section perms", func() {
			elfPath := filepath.Join(tempDir, "perms.elf")
			createMinimalX8664ELF(elfPath, 0x400000, 0x400000, []byte{0x90})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			hasExecutable := false
			for _, sec := range prog.Image.Sections {
				if sec.Perms.Execute {
					hasExecutable = true
					Expect(sec.Perms.Read).To(BeTrue())
					Expect(sec.Perms.Write).To(BeFalse())
				}
			}
			Expect(hasExecutable).To(BeTrue())
		})
	})

	Describe("Multi-segment ELFs", func() {
		It("should load multiple PT_LOAD segments", func() {
			elfPath := filepath.Join(tempDir, "multi-segment.elf")
			codeData := []byte{0x55, 0xC3}
			dataData := []byte{0x01, 0x02, 0x03, 0x04}
			createMultiSegmentX8664ELF(elfPath, 0x400000, 0x400000, codeData, 0x600000, dataData)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Image.Sections).To(HaveLen(2))

			var codeSec, dataSec *image.Section
			for i := range prog.Image.Sections {
				switch prog.Image.Sections[i].Base {
				case 0x400000:
					codeSec = &prog.Image.Sections[i]
				case 0x600000:
					dataSec = &prog.Image.Sections[i]
				}
			}

			Expect(codeSec).NotTo(BeNil())
			Expect(codeSec.Data).To(Equal(codeData))
			Expect(codeSec.Perms.Execute).To(BeTrue())

			Expect(dataSec).NotTo(BeNil())
			Expect(dataSec.Data).To(Equal(dataData))
			Expect(dataSec.Perms.Write).To(BeTrue())
		})
	})

	Describe("BSS segments", func() {
		It("should zero-fill the section tail where Memsz > Filesz", func() {
			elfPath := filepath.Join(tempDir, "bss.elf")
			initialData := []byte{0x01, 0x02, 0x03, 0x04}
			memSize := uint64(1024)
			createBSSSegmentELF(elfPath, 0x600000, 0x400000, initialData, memSize)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			var bssSec *image.Section
			for i := range prog.Image.Sections {
				if prog.Image.Sections[i].Base == 0x600000 {
					bssSec = &prog.Image.Sections[i]
					break
				}
			}

			Expect(bssSec).NotTo(BeNil())
			Expect(bssSec.Data).To(HaveLen(int(memSize)))
			Expect(bssSec.Data[:4]).To(Equal(initialData))
			Expect(bssSec.Data[4]).To(Equal(byte(0)))
			Expect(bssSec.Data[memSize-1]).To(Equal(byte(0)))
		})
	})

	Describe("ELFs with no loadable segments", func() {
		It("should return an empty image for ELF with no PT_LOAD", func() {
			elfPath := filepath.Join(tempDir, "no-load.elf")
			createNoLoadableSegmentsELF(elfPath, 0x400000)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Image.Sections).To(BeEmpty())
			Expect(prog.EntryPoint).To(Equal(uint64(0x400000)))
		})
	})
})

// writeELFHeader64 fills a 64-byte little-endian ELF64 header.
func writeELFHeader64(machine uint16, entryPoint uint64, phnum uint16) []byte {
	h := make([]byte, 64)
	copy(h[0:4], []byte{0x7f, 'E', 'L', 'F'})
	h[4] = 2 // 64-bit
	h[5] = 1 // little endian
	h[6] = 1 // version
	binary.LittleEndian.PutUint16(h[16:18], 2) // executable
	binary.LittleEndian.PutUint16(h[18:20], machine)
	binary.LittleEndian.PutUint32(h[20:24], 1) // version
	binary.LittleEndian.PutUint64(h[24:32], entryPoint)
	binary.LittleEndian.PutUint64(h[32:40], 64) // phoff
	binary.LittleEndian.PutUint16(h[52:54], 64) // ehsize
	binary.LittleEndian.PutUint16(h[54:56], 56) // phentsize
	binary.LittleEndian.PutUint16(h[56:58], phnum)
	return h
}

// writeProgHeader64 fills a 56-byte PT_LOAD program header.
func writeProgHeader64(flags uint32, offset, vaddr, filesz, memsz uint64) []byte {
	p := make([]byte, 56)
	binary.LittleEndian.PutUint32(p[0:4], 1) // PT_LOAD
	binary.LittleEndian.PutUint32(p[4:8], flags)
	binary.LittleEndian.PutUint64(p[8:16], offset)
	binary.LittleEndian.PutUint64(p[16:24], vaddr)
	binary.LittleEndian.PutUint64(p[24:32], vaddr)
	binary.LittleEndian.PutUint64(p[32:40], filesz)
	binary.LittleEndian.PutUint64(p[40:48], memsz)
	binary.LittleEndian.PutUint64(p[48:56], 0x1000)
	return p
}

// createMinimalX8664ELF creates a minimal valid x86-64 ELF64 binary
// with one RX code segment.
func createMinimalX8664ELF(path string, loadAddr, entryPoint uint64, code []byte) {
	elfHeader := writeELFHeader64(62, entryPoint, 1) // EM_X86_64
	progHeader := writeProgHeader64(0x5, 120, loadAddr, uint64(len(code)), uint64(len(code)))

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeader)
	_, _ = file.Write(code)
}

// createMinimalARM64ELF creates a minimal AArch64 ELF to test rejection.
func createMinimalARM64ELF(path string) {
	elfHeader := writeELFHeader64(183, 0, 0) // EM_AARCH64

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
}

// createMultiSegmentX8664ELF creates an x86-64 ELF with an RX code
// segment and an RW data segment.
func createMultiSegmentX8664ELF(path string, codeAddr, entryPoint uint64, code []byte, dataAddr uint64, data []byte) {
	elfHeader := writeELFHeader64(62, entryPoint, 2)
	progHeader1 := writeProgHeader64(0x5, 64+56*2, codeAddr, uint64(len(code)), uint64(len(code)))
	progHeader2 := writeProgHeader64(0x6, 64+56*2+uint64(len(code)), dataAddr, uint64(len(data)), uint64(len(data)))

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeader1)
	_, _ = file.Write(progHeader2)
	_, _ = file.Write(code)
	_, _ = file.Write(data)
}

// createBSSSegmentELF creates an x86-64 ELF with a segment where
// Memsz > Filesz.
func createBSSSegmentELF(path string, segAddr, entryPoint uint64, data []byte, memSize uint64) {
	elfHeader := writeELFHeader64(62, entryPoint, 1)
	progHeader := writeProgHeader64(0x6, 120, segAddr, uint64(len(data)), memSize)

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeader)
	_, _ = file.Write(data)
}

// createNoLoadableSegmentsELF creates an x86-64 ELF whose only segment
// is PT_NOTE.
func createNoLoadableSegmentsELF(path string, entryPoint uint64) {
	elfHeader := writeELFHeader64(62, entryPoint, 1)

	progHeader := make([]byte, 56)
	binary.LittleEndian.PutUint32(progHeader[0:4], 4)   // PT_NOTE
	binary.LittleEndian.PutUint32(progHeader[4:8], 0x4) // PF_R
	binary.LittleEndian.PutUint64(progHeader[8:16], 120)
	binary.LittleEndian.PutUint64(progHeader[48:56], 4)

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeader)
}
