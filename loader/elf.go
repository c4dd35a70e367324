// Package loader builds decoder images from ELF binaries.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/birchlake/pcodebind/image"
)

// Program is a loaded ELF binary ready to bind to a decoding engine.
type Program struct {
	// EntryPoint is the virtual address where execution begins.
	EntryPoint uint64
	// Language identifies the architecture description matching the
	// binary, e.g. "x86:LE:64:default".
	Language string
	// Image holds every PT_LOAD segment as a section. BSS tails
	// (memory size beyond file size) are zero-filled.
	Image *image.Image
}

// Load parses an x86 or x86-64 ELF binary into a Program.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	lang, err := languageFor(f)
	if err != nil {
		return nil, err
	}

	prog := &Program{
		EntryPoint: f.Entry,
		Language:   lang,
		Image:      &image.Image{},
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Memsz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data[:phdr.Filesz], 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		prog.Image.Sections = append(prog.Image.Sections, image.Section{
			Base: phdr.Vaddr,
			Data: data,
			Perms: image.Perms{
				Read:    phdr.Flags&elf.PF_R != 0,
				Write:   phdr.Flags&elf.PF_W != 0,
				Execute: phdr.Flags&elf.PF_X != 0,
			},
		})
	}

	return prog, nil
}

// languageFor maps the ELF machine and class to a built-in
// architecture description identifier.
func languageFor(f *elf.File) (string, error) {
	switch f.Machine {
	case elf.EM_386:
		if f.Class != elf.ELFCLASS32 {
			return "", fmt.Errorf("i386 ELF with class %v", f.Class)
		}
		return "x86:LE:32:default", nil
	case elf.EM_X86_64:
		if f.Class != elf.ELFCLASS64 {
			return "", fmt.Errorf("x86-64 ELF with class %v", f.Class)
		}
		return "x86:LE:64:default", nil
	default:
		return "", fmt.Errorf("unsupported machine type %v", f.Machine)
	}
}
