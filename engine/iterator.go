package engine

import "github.com/birchlake/pcodebind/pcode"

// ReadAt decodes up to max sequential instructions starting at offset.
// If the first decode fails its error is returned; a failure later in
// the run ends the sweep and returns what was decoded so far.
func (e *Engine) ReadAt(offset uint64, max int) ([]pcode.Instruction, error) {
	return e.read(offset, max, false)
}

// ReadBlockAt decodes sequential instructions starting at offset and
// stops after the first instruction that terminates a basic block, or
// after max instructions, whichever comes first.
func (e *Engine) ReadBlockAt(offset uint64, max int) ([]pcode.Instruction, error) {
	return e.read(offset, max, true)
}

func (e *Engine) read(offset uint64, max int, stopAtBlockEnd bool) ([]pcode.Instruction, error) {
	var out []pcode.Instruction
	addr := offset
	for i := 0; i < max; i++ {
		inst, err := e.DecodeAt(addr)
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			return out, nil
		}
		out = append(out, inst)
		if stopAtBlockEnd && inst.TerminatesBasicBlock() {
			break
		}
		addr = inst.NextAddr()
	}
	return out, nil
}
