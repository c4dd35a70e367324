// Package arch loads architecture descriptions: the address-space
// topology, register table, and context defaults one decoder backend
// needs. Descriptions are JSON documents parsed once at engine
// construction and immutable afterwards.
package arch

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/birchlake/pcodebind/pcode"
)

//go:embed specs/*.json
var builtins embed.FS

var builtinPaths = map[string]string{
	"x86:LE:32:default": "specs/x86-32.json",
	"x86:LE:64:default": "specs/x86-64.json",
}

// Register is one named entry of the architecture's register table.
type Register struct {
	Name    string
	Varnode pcode.Varnode
}

// ContextValue is one disassembly-context default, applied to the
// backend before the first decode.
type ContextValue struct {
	Name  string `json:"name"`
	Value uint32 `json:"value"`
}

// Spec is one parsed architecture description. All fields are fixed
// after parsing; handles returned by its lookup methods stay valid for
// the life of the Spec.
type Spec struct {
	Language    string
	Decoder     string
	Alignment   int
	PointerSize int

	spaces      []*pcode.AddressSpace
	byName      map[string]*pcode.AddressSpace
	byShortcut  map[string]*pcode.AddressSpace
	defaultCode *pcode.AddressSpace
	defaultData *pcode.AddressSpace

	registers []Register
	regByName map[string]Register
	regByLoc  map[regKey]string

	context []ContextValue
}

type regKey struct {
	space  int
	offset uint64
	size   uint32
}

type specFile struct {
	Language    string `json:"language"`
	Decoder     string `json:"decoder"`
	Endian      string `json:"endian"`
	Alignment   int    `json:"alignment"`
	PointerSize int    `json:"pointerSize"`
	Spaces      []struct {
		Index       int             `json:"index"`
		Name        string          `json:"name"`
		Shortcut    string          `json:"shortcut"`
		Kind        pcode.SpaceKind `json:"kind"`
		WordSize    uint32          `json:"wordSize"`
		AddressSize uint32          `json:"addressSize"`
		BigEndian   bool            `json:"bigEndian"`
		Heritaged   bool            `json:"heritaged"`
		Truncated   bool            `json:"truncated"`
		HasPhysical bool            `json:"hasPhysical"`
		FormalStack bool            `json:"formalStack"`
	} `json:"spaces"`
	DefaultCodeSpace string `json:"defaultCodeSpace"`
	DefaultDataSpace string `json:"defaultDataSpace"`
	Registers        []struct {
		Name   string `json:"name"`
		Space  string `json:"space"`
		Offset uint64 `json:"offset"`
		Size   uint32 `json:"size"`
	} `json:"registers"`
	Context []ContextValue `json:"context"`
}

// LoadSpec reads and parses an architecture description file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecParseError{Path: path, Err: err}
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, &SpecParseError{Path: path, Err: err}
	}
	return spec, nil
}

// LoadLanguage parses one of the descriptions shipped with this module,
// looked up by language identifier such as "x86:LE:32:default".
func LoadLanguage(id string) (*Spec, error) {
	path, ok := builtinPaths[id]
	if !ok {
		return nil, &SpecParseError{Err: fmt.Errorf("no built-in description for language %q", id)}
	}
	data, err := builtins.ReadFile(path)
	if err != nil {
		return nil, &SpecParseError{Path: path, Err: err}
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, &SpecParseError{Path: path, Err: err}
	}
	return spec, nil
}

// Languages returns the identifiers of the built-in descriptions.
func Languages() []string {
	ids := make([]string, 0, len(builtinPaths))
	for id := range builtinPaths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParseSpec parses an architecture description from raw JSON.
func ParseSpec(data []byte) (*Spec, error) {
	var f specFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Language == "" {
		return nil, fmt.Errorf("missing language identifier")
	}
	if f.Decoder == "" {
		return nil, fmt.Errorf("missing decoder name")
	}
	if len(f.Spaces) == 0 {
		return nil, fmt.Errorf("no address spaces defined")
	}

	spec := &Spec{
		Language:    f.Language,
		Decoder:     f.Decoder,
		Alignment:   f.Alignment,
		PointerSize: f.PointerSize,
		byName:      make(map[string]*pcode.AddressSpace),
		byShortcut:  make(map[string]*pcode.AddressSpace),
		regByName:   make(map[string]Register),
		regByLoc:    make(map[regKey]string),
		context:     f.Context,
	}

	bigEndian := f.Endian == "big"
	for i, s := range f.Spaces {
		if s.Index != i {
			return nil, fmt.Errorf("space %q: index %d out of order, want %d", s.Name, s.Index, i)
		}
		if _, dup := spec.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate space name %q", s.Name)
		}
		space := &pcode.AddressSpace{
			Index:       s.Index,
			Name:        s.Name,
			Shortcut:    s.Shortcut,
			Kind:        s.Kind,
			WordSize:    s.WordSize,
			AddressSize: s.AddressSize,
			BigEndian:   s.BigEndian || bigEndian && s.Kind != pcode.KindConstant,
			Heritaged:   s.Heritaged,
			Truncated:   s.Truncated,
			HasPhysical: s.HasPhysical,
			FormalStack: s.FormalStack,
		}
		spec.spaces = append(spec.spaces, space)
		spec.byName[s.Name] = space
		if s.Shortcut != "" {
			spec.byShortcut[s.Shortcut] = space
		}
	}

	var err error
	if spec.defaultCode, err = spec.SpaceByName(f.DefaultCodeSpace); err != nil {
		return nil, fmt.Errorf("default code space: %w", err)
	}
	if spec.defaultData, err = spec.SpaceByName(f.DefaultDataSpace); err != nil {
		return nil, fmt.Errorf("default data space: %w", err)
	}

	for _, r := range f.Registers {
		space, err := spec.SpaceByName(r.Space)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", r.Name, err)
		}
		if _, dup := spec.regByName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate register name %q", r.Name)
		}
		reg := Register{
			Name:    r.Name,
			Varnode: pcode.Varnode{Space: space, Offset: r.Offset, Size: r.Size},
		}
		key := regKey{space: space.Index, offset: r.Offset, size: r.Size}
		if other, dup := spec.regByLoc[key]; dup {
			return nil, fmt.Errorf("registers %q and %q share a location", other, r.Name)
		}
		spec.registers = append(spec.registers, reg)
		spec.regByName[r.Name] = reg
		spec.regByLoc[key] = r.Name
	}

	return spec, nil
}

// ContextDefaults returns the description's context defaults in file
// order. The slice is shared; callers must not modify it.
func (s *Spec) ContextDefaults() []ContextValue {
	return s.context
}
