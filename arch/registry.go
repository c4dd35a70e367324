package arch

import (
	"fmt"

	"github.com/birchlake/pcodebind/pcode"
)

// Spaces returns handles to every address space in index order. The
// slice is shared; callers must not modify it.
func (s *Spec) Spaces() []*pcode.AddressSpace {
	return s.spaces
}

// SpaceByIndex returns the space with the given index.
func (s *Spec) SpaceByIndex(index int) (*pcode.AddressSpace, error) {
	if index < 0 || index >= len(s.spaces) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownSpace, index)
	}
	return s.spaces[index], nil
}

// SpaceByName returns the space with the given name.
func (s *Spec) SpaceByName(name string) (*pcode.AddressSpace, error) {
	if space, ok := s.byName[name]; ok {
		return space, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSpace, name)
}

// SpaceByShortcut returns the space with the given one-character
// shortcut.
func (s *Spec) SpaceByShortcut(shortcut string) (*pcode.AddressSpace, error) {
	if space, ok := s.byShortcut[shortcut]; ok {
		return space, nil
	}
	return nil, fmt.Errorf("%w: shortcut %q", ErrUnknownSpace, shortcut)
}

// spaceByKind returns the first space of the given kind, in index
// order. The canonical accessors below rely on each such space being
// unique in well-formed descriptions.
func (s *Spec) spaceByKind(kind pcode.SpaceKind) (*pcode.AddressSpace, error) {
	for _, space := range s.spaces {
		if space.Kind == kind {
			return space, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s space", ErrUnknownSpace, kind)
}

// ConstantSpace returns the space holding literal values.
func (s *Spec) ConstantSpace() (*pcode.AddressSpace, error) {
	return s.spaceByKind(pcode.KindConstant)
}

// UniqueSpace returns the space holding decoder temporaries.
func (s *Spec) UniqueSpace() (*pcode.AddressSpace, error) {
	return s.spaceByKind(pcode.KindUnique)
}

// RegisterSpace returns the space holding processor registers.
func (s *Spec) RegisterSpace() (*pcode.AddressSpace, error) {
	return s.spaceByKind(pcode.KindRegister)
}

// StackSpace returns the formal stack space, if the description
// defines one.
func (s *Spec) StackSpace() (*pcode.AddressSpace, error) {
	for _, space := range s.spaces {
		if space.FormalStack {
			return space, nil
		}
	}
	return s.spaceByKind(pcode.KindStack)
}

// DefaultCodeSpace returns the space instructions are fetched from.
func (s *Spec) DefaultCodeSpace() *pcode.AddressSpace {
	return s.defaultCode
}

// DefaultDataSpace returns the space data loads and stores target.
func (s *Spec) DefaultDataSpace() *pcode.AddressSpace {
	return s.defaultData
}
