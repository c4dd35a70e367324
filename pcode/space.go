package pcode

import (
	"encoding/json"
	"fmt"
)

// SpaceKind classifies an address space.
type SpaceKind int

const (
	KindConstant SpaceKind = iota
	KindRegister
	KindUnique
	KindStack
	KindCode
	KindData
	KindJoin
	KindOverlay
	KindOther
)

var kindNames = map[SpaceKind]string{
	KindConstant: "constant",
	KindRegister: "register",
	KindUnique:   "unique",
	KindStack:    "stack",
	KindCode:     "code",
	KindData:     "data",
	KindJoin:     "join",
	KindOverlay:  "overlay",
	KindOther:    "other",
}

var kindValues = func() map[string]SpaceKind {
	m := make(map[string]SpaceKind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// ParseSpaceKind converts a kind name from an architecture description
// into a SpaceKind.
func ParseSpaceKind(s string) (SpaceKind, error) {
	if k, ok := kindValues[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown space kind %q", s)
}

func (k SpaceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalJSON encodes the kind as its canonical name.
func (k SpaceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its canonical name.
func (k *SpaceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSpaceKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AddressSpace describes one named, independently addressed region the
// decoder can reference. Spaces are created when an architecture
// description is parsed and are immutable afterwards; callers receive
// shared handles and must not modify them. Space identity is tied to
// the architecture description, not to any bound image, so handles stay
// valid across image rebinds on the owning engine.
type AddressSpace struct {
	Index       int       `json:"index"`
	Name        string    `json:"name"`
	Shortcut    string    `json:"shortcut"`
	Kind        SpaceKind `json:"kind"`
	WordSize    uint32    `json:"wordSize"`
	AddressSize uint32    `json:"addressSize"`
	BigEndian   bool      `json:"bigEndian"`
	Heritaged   bool      `json:"heritaged"`
	Truncated   bool      `json:"truncated"`
	HasPhysical bool      `json:"hasPhysical"`
	FormalStack bool      `json:"formalStack"`
}

func (s *AddressSpace) String() string {
	return s.Name
}

// IsConstant reports whether varnode offsets in this space are literal
// values rather than storage addresses.
func (s *AddressSpace) IsConstant() bool {
	return s.Kind == KindConstant
}
