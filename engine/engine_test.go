package engine_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/birchlake/pcodebind/arch"
	"github.com/birchlake/pcodebind/engine"
	_ "github.com/birchlake/pcodebind/engine/x86"
	"github.com/birchlake/pcodebind/image"
	"github.com/birchlake/pcodebind/pcode"
)

var _ = Describe("Engine lifecycle", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should start unbound and reject decode calls", func() {
		Expect(e.Bound()).To(BeFalse())
		_, err := e.DecodeAt(0)
		Expect(errors.Is(err, engine.ErrNoImage)).To(BeTrue())
	})

	It("should become bound after Bind", func() {
		e.Bind(image.FromBytes(0, []byte{0x90}))
		Expect(e.Bound()).To(BeTrue())
	})

	It("should have a unique identifier", func() {
		other, err := engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
		Expect(e.ID()).ToNot(Equal(other.ID()))
	})

	It("should fail construction for an unregistered decoder", func() {
		spec, err := arch.ParseSpec([]byte(`{
			"language": "mips:BE:32:default", "decoder": "mips",
			"spaces": [{"index": 0, "name": "ram", "kind": "data"}],
			"defaultCodeSpace": "ram", "defaultDataSpace": "ram"
		}`))
		Expect(err).ToNot(HaveOccurred())
		_, err = engine.NewFromSpec(spec)
		var perr *arch.SpecParseError
		Expect(errors.As(err, &perr)).To(BeTrue())
	})

	It("should list the registered drivers", func() {
		Expect(engine.Drivers()).To(ContainElement("x86"))
	})
})

var _ = Describe("DecodeAt", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should decode a one-byte push into its three-op expansion", func() {
		e.Bind(image.FromBytes(0, []byte{0x55}))

		inst, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Address).To(Equal(uint64(0)))
		Expect(inst.Length).To(Equal(uint32(1)))
		Expect(inst.Disassembly.Mnemonic).To(Equal("PUSH"))

		Expect(inst.Ops).To(HaveLen(3))
		Expect(inst.Ops[0].Opcode).To(Equal(pcode.OpCopy))
		Expect(inst.Ops[1].Opcode).To(Equal(pcode.OpIntSub))
		Expect(inst.Ops[2].Opcode).To(Equal(pcode.OpStore))

		ebp, err := e.RegisterByName("EBP")
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Ops[0].Inputs[0].Equal(ebp)).To(BeTrue())
		Expect(inst.Ops[2].HasOutput()).To(BeFalse())
	})

	It("should decode a mov-immediate with one register-space output", func() {
		e.Bind(image.FromBytes(0x1000, []byte{0xB8, 0, 0, 0, 0, 0xC3}))

		inst, err := e.DecodeAt(0x1000)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Length).To(Equal(uint32(5)))
		Expect(inst.Disassembly.Mnemonic).To(Equal("MOV"))
		Expect(inst.Ops).ToNot(BeEmpty())

		outputs := 0
		for _, op := range inst.Ops {
			if op.HasOutput() {
				outputs++
				Expect(op.Output.Space.Kind).To(Equal(pcode.KindRegister))
			}
		}
		Expect(outputs).To(Equal(1))
	})

	It("should fail with MemoryUnavailable at a fully unmapped address", func() {
		e.Bind(image.FromBytes(0x1000, []byte{0x90}))
		_, err := e.DecodeAt(0x9000)
		Expect(errors.Is(err, image.ErrMemoryUnavailable)).To(BeTrue())
	})

	It("should decode across a section tail using zero-fill lookahead", func() {
		// A single mapped byte; the decoder's 15-byte lookahead spills
		// past the section end.
		e.Bind(image.FromBytes(0, []byte{0x90}))
		inst, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Disassembly.Mnemonic).To(Equal("NOP"))
		Expect(inst.Length).To(Equal(uint32(1)))
	})

	It("should fail with DecodeError on an invalid encoding", func() {
		e.Bind(image.FromBytes(0, []byte{0x0F, 0x04}))
		_, err := e.DecodeAt(0)
		var derr *engine.DecodeError
		Expect(errors.As(err, &derr)).To(BeTrue())
		Expect(derr.Addr).To(Equal(uint64(0)))
	})

	It("should keep working after a failed decode", func() {
		e.Bind(image.FromBytes(0, []byte{0x90}))
		_, err := e.DecodeAt(0x5000)
		Expect(err).To(HaveOccurred())
		Expect(e.Bound()).To(BeTrue())

		inst, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Disassembly.Mnemonic).To(Equal("NOP"))
	})

	It("should return caller-owned instructions", func() {
		e.Bind(image.FromBytes(0, []byte{0x55}))
		first, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		first.Ops[0].Opcode = pcode.OpCallOther

		again, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(again.Ops[0].Opcode).To(Equal(pcode.OpCopy))
	})
})

var _ = Describe("Rebinding", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should decode identically across a rebind with identical bytes", func() {
		e.Bind(image.FromBytes(0x1000, []byte{0xB8, 0, 0, 0, 0, 0xC3}))
		before, err := e.DecodeAt(0x1000)
		Expect(err).ToNot(HaveOccurred())

		e.Bind(image.FromBytes(0x1000, []byte{0xB8, 0, 0, 0, 0, 0xC3}))
		after, err := e.DecodeAt(0x1000)
		Expect(err).ToNot(HaveOccurred())
		Expect(after).To(Equal(before))
	})

	It("should discard cached decodes when the image changes", func() {
		e.Bind(image.FromBytes(0, []byte{0x90}))
		inst, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Disassembly.Mnemonic).To(Equal("NOP"))

		e.Bind(image.FromBytes(0, []byte{0x55}))
		inst, err = e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Disassembly.Mnemonic).To(Equal("PUSH"))
	})

	It("should keep address-space handles valid across rebind", func() {
		before, err := e.SpaceByName("ram")
		Expect(err).ToNot(HaveOccurred())

		e.Bind(image.FromBytes(0, []byte{0x90}))
		e.Bind(image.FromBytes(0x1000, []byte{0xC3}))

		after, err := e.SpaceByName("ram")
		Expect(err).ToNot(HaveOccurred())
		Expect(after).To(BeIdenticalTo(before))
	})
})

var _ = Describe("Initial context", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should accept context values before the first decode", func() {
		Expect(e.SetInitialContextValue("addrsize", 2)).To(Succeed())
	})

	It("should reject unknown context variables", func() {
		Expect(e.SetInitialContextValue("thumbmode", 1)).ToNot(Succeed())
	})

	It("should seal the context at the first decode", func() {
		e.Bind(image.FromBytes(0, []byte{0x90}))
		_, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())

		err = e.SetInitialContextValue("addrsize", 2)
		Expect(errors.Is(err, engine.ErrContextSealed)).To(BeTrue())
	})

	It("should switch decode modes through addrsize", func() {
		// 48 C7 C0 2A 00 00 00 is mov rax, 42 in 64-bit mode only.
		Expect(e.SetInitialContextValue("addrsize", 2)).To(Succeed())
		e.Bind(image.FromBytes(0, []byte{0x48, 0xC7, 0xC0, 0x2A, 0, 0, 0}))

		inst, err := e.DecodeAt(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Disassembly.Mnemonic).To(Equal("MOV"))
		Expect(inst.Length).To(Equal(uint32(7)))
	})
})

var _ = Describe("Instruction iterators", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
		// mov eax, 1 / push ebp / ret / nop
		e.Bind(image.FromBytes(0x1000, []byte{
			0xB8, 0x01, 0, 0, 0,
			0x55,
			0xC3,
			0x90,
		}))
	})

	It("should decode sequential instructions", func() {
		insts, err := e.ReadAt(0x1000, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(insts).To(HaveLen(2))
		Expect(insts[0].Disassembly.Mnemonic).To(Equal("MOV"))
		Expect(insts[1].Disassembly.Mnemonic).To(Equal("PUSH"))
		Expect(insts[1].Address).To(Equal(insts[0].NextAddr()))
	})

	It("should stop a block read at the first terminator", func() {
		insts, err := e.ReadBlockAt(0x1000, 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(insts).To(HaveLen(3))
		Expect(insts[2].Disassembly.Mnemonic).To(Equal("RET"))
		Expect(insts[2].TerminatesBasicBlock()).To(BeTrue())
	})

	It("should return the first error when nothing decodes", func() {
		_, err := e.ReadAt(0x9000, 4)
		Expect(errors.Is(err, image.ErrMemoryUnavailable)).To(BeTrue())
	})

	It("should return a partial run when decoding falls off the image", func() {
		short, err := engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
		short.Bind(image.FromBytes(0, []byte{0x90}))

		insts, err := short.ReadAt(0, 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(insts).To(HaveLen(1))
		Expect(insts[0].Disassembly.Mnemonic).To(Equal("NOP"))
	})
})

var _ = Describe("ReadBytes", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should require a bound image", func() {
		ram, err := e.SpaceByName("ram")
		Expect(err).ToNot(HaveOccurred())
		_, err = e.ReadBytes(pcode.Varnode{Space: ram, Offset: 0, Size: 4})
		Expect(errors.Is(err, engine.ErrNoImage)).To(BeTrue())
	})

	It("should read a code-space varnode from the image", func() {
		e.Bind(image.FromBytes(0x1000, []byte{1, 2, 3, 4}))
		ram, err := e.SpaceByName("ram")
		Expect(err).ToNot(HaveOccurred())

		data, err := e.ReadBytes(pcode.Varnode{Space: ram, Offset: 0x1001, Size: 2})
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte{2, 3}))
	})

	It("should reject varnodes outside the default code space", func() {
		e.Bind(image.FromBytes(0, []byte{1}))
		reg, err := e.SpaceByName("register")
		Expect(err).ToNot(HaveOccurred())
		_, err = e.ReadBytes(pcode.Varnode{Space: reg, Offset: 0, Size: 4})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Engine metadata", func() {
	var e *engine.Engine

	BeforeEach(func() {
		var err error
		e, err = engine.NewLanguage("x86:LE:32:default")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should expose the register table", func() {
		regs := e.AllRegisters()
		Expect(regs).ToNot(BeEmpty())
		vn, err := e.RegisterByName(regs[0].Name)
		Expect(err).ToNot(HaveOccurred())
		name, err := e.NameOfVarnode(vn)
		Expect(err).ToNot(HaveOccurred())
		Expect(name).To(Equal(regs[0].Name))
	})

	It("should expose address-space lookups", func() {
		Expect(e.Spaces()).ToNot(BeEmpty())
		byIndex, err := e.SpaceByIndex(0)
		Expect(err).ToNot(HaveOccurred())
		byShortcut, err := e.SpaceByShortcut(byIndex.Shortcut)
		Expect(err).ToNot(HaveOccurred())
		Expect(byShortcut).To(BeIdenticalTo(byIndex))
	})
})
