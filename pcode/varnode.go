package pcode

import "fmt"

// Varnode is a storage-location descriptor: a byte range of one address
// space. It is a plain value; equality is structural. A nil *Varnode is
// the canonical "no output" for operations that produce nothing.
type Varnode struct {
	Space  *AddressSpace
	Offset uint64
	Size   uint32
}

// Equal reports structural equality. Spaces compare by index so that
// varnodes from different lookups of the same registry still match.
func (v Varnode) Equal(o Varnode) bool {
	if v.Offset != o.Offset || v.Size != o.Size {
		return false
	}
	if v.Space == nil || o.Space == nil {
		return v.Space == o.Space
	}
	return v.Space.Index == o.Space.Index
}

// Covers reports whether o lies entirely within v. Both must be in the
// same space.
func (v Varnode) Covers(o Varnode) bool {
	if v.Space == nil || o.Space == nil || v.Space.Index != o.Space.Index {
		return false
	}
	return o.Offset >= v.Offset && o.Offset+uint64(o.Size) <= v.Offset+uint64(v.Size)
}

// String renders the varnode as space[offset:size]. Constant-space
// varnodes render as the literal value.
func (v Varnode) String() string {
	if v.Space == nil {
		return fmt.Sprintf("<nil>[%#x:%d]", v.Offset, v.Size)
	}
	if v.Space.IsConstant() {
		return fmt.Sprintf("%#x:%d", v.Offset, v.Size)
	}
	return fmt.Sprintf("%s[%#x:%d]", v.Space.Name, v.Offset, v.Size)
}
