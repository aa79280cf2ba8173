// Package types is the central registry of every type reachable in the
// program being lowered. Entries are interned: two syntactic occurrences of
// the same type share one *Entry, so identity comparison is type equality.
package types

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	lltypes "github.com/llir/llvm/ir/types"
)

// Kind enumerates all kinds of type entries.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindStruct
	KindMaybe
	KindEnum
	KindFn
	KindNumLit
	KindMetaType
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindMaybe:
		return "maybe"
	case KindEnum:
		return "enum"
	case KindFn:
		return "fn"
	case KindNumLit:
		return "number literal"
	case KindMetaType:
		return "metatype"
	case KindUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// Entry describes one type. The LL handle is the low-level type used by the
// lowering engine; DI is filled in by the debug-info binder on first use.
type Entry struct {
	Kind        Kind
	Name        string
	SizeInBits  uint64
	AlignInBits uint64
	LL          lltypes.Type
	DI          metadata.Field

	Int     *IntInfo
	Pointer *PointerInfo
	Array   *ArrayInfo
	Struct  *StructInfo
	Maybe   *MaybeInfo
	Enum    *EnumInfo
	Fn      *FnInfo
}

// IntInfo carries signedness and the overflow-intrinsic handles, which are
// registered once per module and never nil afterwards.
type IntInfo struct {
	IsSigned        bool
	AddWithOverflow *ir.Func
	SubWithOverflow *ir.Func
	MulWithOverflow *ir.Func
}

type PointerInfo struct {
	Child   *Entry
	IsConst bool
}

type ArrayInfo struct {
	Child *Entry
	Len   uint64
}

// StructField is one member of a struct. GenIndex is the position in the
// physical layout after zero-sized fields are dropped; -1 when dropped.
type StructField struct {
	Name     string
	Type     *Entry
	SrcIndex int
	GenIndex int
}

type StructInfo struct {
	Fields        []StructField
	GenFieldCount int
	IsSlice       bool
	IsPacked      bool
}

type MaybeInfo struct {
	Child *Entry
}

// EnumField is one variant of a tagged union. Value is the discriminant.
type EnumField struct {
	Name  string
	Type  *Entry
	Value uint64
}

type EnumInfo struct {
	Fields        []EnumField
	GenFieldCount int
	TagType       *Entry
	// PayloadUnion is the biggest variant payload; nil for pure C-like enums.
	PayloadUnion *Entry
}

type FnInfo struct {
	Params        []*Entry
	Return        *Entry
	SrcParamCount int
	IsVarArgs     bool
	CallingConv   enum.CallingConv
}

// HandleIsPtr reports whether values of the type are always carried by
// pointer at the LLIR level.
func HandleIsPtr(e *Entry) bool {
	switch e.Kind {
	case KindStruct, KindMaybe, KindArray:
		return true
	case KindEnum:
		return e.Enum.GenFieldCount != 0
	}
	return false
}

// Field returns the struct field with the given source name.
func (e *Entry) Field(name string) *StructField {
	for i := range e.Struct.Fields {
		if e.Struct.Fields[i].Name == name {
			return &e.Struct.Fields[i]
		}
	}
	return nil
}

// Variant returns the enum field with the given source name.
func (e *Entry) Variant(name string) *EnumField {
	for i := range e.Enum.Fields {
		if e.Enum.Fields[i].Name == name {
			return &e.Enum.Fields[i]
		}
	}
	return nil
}
