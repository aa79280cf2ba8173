package types

import (
	lltypes "github.com/llir/llvm/ir/types"
)

// NewStructType registers an opaque named struct entry. The body is filled
// in by ResolveStruct once the field types are known, which is what makes
// indirect recursion through pointers representable.
func (t *Table) NewStructType(name string) *Entry {
	ll := &lltypes.StructType{TypeName: name, Opaque: true}
	return t.register(&Entry{
		Kind:   KindStruct,
		Name:   name,
		LL:     ll,
		Struct: &StructInfo{},
	})
}

// ResolveStruct computes the physical layout of a named struct: zero-sized
// fields get generation index -1 and are dropped from the low-level body,
// size is the sum of member sizes, alignment is the first member's.
func (t *Table) ResolveStruct(e *Entry, fields []StructField) {
	if e.Kind != KindStruct {
		panic("types: ResolveStruct on non-struct entry")
	}
	if e.Struct.Fields != nil {
		return // already resolved
	}

	var (
		elementTypes    []lltypes.Type
		totalSizeInBits uint64
		firstFieldAlign uint64
	)

	genFieldIndex := 0
	for i := range fields {
		f := &fields[i]
		f.SrcIndex = i
		f.GenIndex = -1

		if f.Type.SizeInBits == 0 {
			continue
		}

		f.GenIndex = genFieldIndex
		elementTypes = append(elementTypes, f.Type.LL)
		totalSizeInBits += f.Type.SizeInBits
		if firstFieldAlign == 0 {
			firstFieldAlign = f.Type.AlignInBits
		}
		genFieldIndex++
	}

	st := e.LL.(*lltypes.StructType)
	st.Fields = elementTypes
	st.Opaque = false

	e.Struct.Fields = fields
	e.Struct.GenFieldCount = genFieldIndex
	e.SizeInBits = totalSizeInBits
	e.AlignInBits = firstFieldAlign
}

// NewEnumType registers an opaque named enum (tagged union) entry.
func (t *Table) NewEnumType(name string) *Entry {
	ll := &lltypes.StructType{TypeName: name, Opaque: true}
	return t.register(&Entry{
		Kind: KindEnum,
		Name: name,
		LL:   ll,
		Enum: &EnumInfo{},
	})
}

// ResolveEnum computes the tagged-union layout: an unsigned tag sized by the
// variant count plus a single-member union holding the biggest payload. An
// enum where no variant carries data collapses to the bare tag type.
func (t *Table) ResolveEnum(e *Entry, fields []EnumField) {
	if e.Kind != KindEnum {
		panic("types: ResolveEnum on non-enum entry")
	}
	if e.Enum.Fields != nil {
		return // already resolved
	}

	var biggest *Entry
	genFieldCount := 0
	for i := range fields {
		f := &fields[i]
		f.Value = uint64(i) //nolint:gosec // G115: variant index is non-negative

		if f.Type == nil {
			f.Type = t.builtins.Void
		}
		if f.Type.Kind == KindVoid {
			continue
		}
		if biggest == nil || f.Type.SizeInBits > biggest.SizeInBits {
			biggest = f.Type
		}
		genFieldCount++
	}

	tagBits := tagBitsFor(uint64(len(fields)))
	tagType := t.IntType(false, tagBits)

	e.Enum.Fields = fields
	e.Enum.GenFieldCount = genFieldCount
	e.Enum.TagType = tagType
	e.AlignInBits = tagBits

	if biggest != nil {
		e.Enum.PayloadUnion = biggest
		e.SizeInBits = tagBits + biggest.SizeInBits

		unionType := lltypes.NewStruct(biggest.LL)
		st := e.LL.(*lltypes.StructType)
		st.Fields = []lltypes.Type{tagType.LL, unionType}
		st.Opaque = false
	} else {
		// pure C-like enum: the value is just the tag
		e.SizeInBits = tagBits
		e.LL = tagType.LL
	}
}

// tagBitsFor picks the smallest builtin unsigned width that can hold every
// discriminant.
func tagBitsFor(fieldCount uint64) uint64 {
	switch {
	case fieldCount < 1<<8:
		return 8
	case fieldCount < 1<<16:
		return 16
	case fieldCount < 1<<32:
		return 32
	default:
		return 64
	}
}
