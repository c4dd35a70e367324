// Package engine owns the lifecycle of one external-decoder
// instantiation: binding images, configuring disassembly context, and
// turning decode calls into owned Instruction values.
package engine

import (
	"errors"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/xid"

	"github.com/birchlake/pcodebind/arch"
	"github.com/birchlake/pcodebind/image"
	"github.com/birchlake/pcodebind/logging"
	"github.com/birchlake/pcodebind/pcode"
)

// decodeCacheSize bounds the per-engine cache of decoded instructions.
const decodeCacheSize = 256

// Engine binds one parsed architecture description to one backend
// instance and at most one active image. An Engine is either Unbound
// (no image; decode calls fail with ErrNoImage) or Bound.
//
// An Engine is not safe for concurrent use. Engines are cheap once the
// description is parsed; run one per goroutine instead of sharing.
type Engine struct {
	id      string
	spec    *arch.Spec
	backend Backend
	img     *image.Image
	cache   *lru.Cache
	sealed  bool
	log     *logging.LoggerCloser
}

// New constructs an engine from an architecture description file. The
// engine starts Unbound.
func New(specPath string) (*Engine, error) {
	spec, err := arch.LoadSpec(specPath)
	if err != nil {
		return nil, err
	}
	return NewFromSpec(spec)
}

// NewLanguage constructs an engine from a built-in architecture
// description, looked up by language identifier.
func NewLanguage(id string) (*Engine, error) {
	spec, err := arch.LoadLanguage(id)
	if err != nil {
		return nil, err
	}
	return NewFromSpec(spec)
}

// NewFromSpec constructs an engine from an already-parsed description.
func NewFromSpec(spec *arch.Spec) (*Engine, error) {
	backend, err := openBackend(spec)
	if err != nil {
		return nil, err
	}

	id := xid.New().String()
	e := &Engine{
		id:      id,
		spec:    spec,
		backend: backend,
		log:     logging.NewWithWriter(os.Stderr, "engine/"+id),
	}
	e.cache, err = lru.New(decodeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating decode cache: %w", err)
	}

	for _, cv := range spec.ContextDefaults() {
		if err := backend.SetContext(cv.Name, cv.Value); err != nil {
			return nil, &arch.SpecParseError{
				Err: fmt.Errorf("context default %q: %w", cv.Name, err),
			}
		}
	}

	e.log.Debug("engine created", "language", spec.Language, "decoder", spec.Decoder)
	return e, nil
}

// ID returns the engine's unique identifier.
func (e *Engine) ID() string {
	return e.id
}

// Arch returns the engine's architecture description.
func (e *Engine) Arch() *arch.Spec {
	return e.spec
}

// Bound reports whether an image is attached.
func (e *Engine) Bound() bool {
	return e.img != nil
}

// Bind attaches img, replacing any previously bound image. The parsed
// architecture description is kept; all per-image decoder state, which
// is only the decode cache, is discarded. Binding never reseals or
// reopens the disassembly context.
func (e *Engine) Bind(img *image.Image) {
	e.img = img
	e.cache.Purge()
	e.log.Debug("image bound", "sections", len(img.Sections), "bytes", img.Size())
}

// SetInitialContextValue sets one named disassembly-context value,
// such as a processor mode bit. The backend reads context once at the
// first decode, so this must be called before then; afterwards it
// fails with ErrContextSealed.
func (e *Engine) SetInitialContextValue(name string, value uint32) error {
	if e.sealed {
		return ErrContextSealed
	}
	return e.backend.SetContext(name, value)
}

// DecodeAt decodes the single instruction at offset in the default
// code space. On success the returned Instruction is owned by the
// caller and holds no reference back into engine state. On failure the
// engine's bound image, cache, and context are unchanged.
func (e *Engine) DecodeAt(offset uint64) (pcode.Instruction, error) {
	if e.img == nil {
		return pcode.Instruction{}, ErrNoImage
	}
	e.sealed = true

	if cached, ok := e.cache.Get(offset); ok {
		return cached.(pcode.Instruction).Clone(), nil
	}

	asm := &AsmEmitter{}
	ops := &PcodeEmitter{}
	length, err := e.backend.DecodeAt(imageReader{e.img}, offset, asm, ops)
	if err != nil {
		if errors.Is(err, image.ErrMemoryUnavailable) {
			return pcode.Instruction{}, err
		}
		var de *DecodeError
		if errors.As(err, &de) {
			return pcode.Instruction{}, err
		}
		return pcode.Instruction{}, &DecodeError{Addr: offset, Err: err}
	}

	dis, ok := asm.Disassembly()
	if !ok {
		return pcode.Instruction{}, &DecodeError{Addr: offset, Err: errors.New("backend emitted no disassembly")}
	}

	inst := pcode.Instruction{
		Address:     offset,
		Length:      uint32(length),
		Disassembly: dis,
		Ops:         ops.Ops(),
	}
	e.cache.Add(offset, inst.Clone())
	return inst, nil
}

// ReadBytes reads the byte range a varnode describes from the bound
// image. Only varnodes in the default code space are readable; bytes
// past a section's end read as zero, per the image read contract.
func (e *Engine) ReadBytes(v pcode.Varnode) ([]byte, error) {
	if e.img == nil {
		return nil, ErrNoImage
	}
	if v.Space == nil || v.Space.Index != e.spec.DefaultCodeSpace().Index {
		return nil, fmt.Errorf("read bytes: %s is not in the default code space", v)
	}
	buf := make([]byte, v.Size)
	if _, err := e.img.Read(v.Offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Register and space lookups delegate to the architecture description;
// handles stay valid across image rebinds.

// RegisterByName resolves a register name to its storage location.
func (e *Engine) RegisterByName(name string) (pcode.Varnode, error) {
	return e.spec.RegisterByName(name)
}

// NameOfVarnode resolves a storage location back to its register name.
func (e *Engine) NameOfVarnode(v pcode.Varnode) (string, error) {
	return e.spec.NameOfVarnode(v)
}

// AllRegisters enumerates the register table in canonical order.
func (e *Engine) AllRegisters() []arch.Register {
	return e.spec.AllRegisters()
}

// SpaceByIndex returns the address space with the given index.
func (e *Engine) SpaceByIndex(index int) (*pcode.AddressSpace, error) {
	return e.spec.SpaceByIndex(index)
}

// SpaceByName returns the address space with the given name.
func (e *Engine) SpaceByName(name string) (*pcode.AddressSpace, error) {
	return e.spec.SpaceByName(name)
}

// SpaceByShortcut returns the address space with the given shortcut.
func (e *Engine) SpaceByShortcut(shortcut string) (*pcode.AddressSpace, error) {
	return e.spec.SpaceByShortcut(shortcut)
}

// Spaces returns all address spaces in index order.
func (e *Engine) Spaces() []*pcode.AddressSpace {
	return e.spec.Spaces()
}

// imageReader adapts the bound image to the MemoryReader a backend
// sees during one decode call.
type imageReader struct {
	img *image.Image
}

func (r imageReader) ReadAt(addr uint64, buf []byte) (int, error) {
	return r.img.Read(addr, buf)
}
