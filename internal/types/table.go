package types

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
)

// Target fixes the pointer width the table derives isize/usize and slice
// layout from.
type Target struct {
	PtrBits uint64
}

// Builtins holds the distinguished entries every compilation uses.
type Builtins struct {
	Invalid     *Entry
	Void        *Entry
	Bool        *Entry
	Unreachable *Entry
	MetaType    *Entry

	I8, I16, I32, I64 *Entry
	U8, U16, U32, U64 *Entry
	Isize, Usize      *Entry
	F32, F64          *Entry

	// CStrLit is the type of C string literals: &const u8.
	CStrLit *Entry

	NumLitInt   *Entry
	NumLitFloat *Entry
}

type intKey struct {
	signed bool
	bits   uint64
}

type childConstKey struct {
	child   *Entry
	isConst bool
}

type arrayKey struct {
	child *Entry
	len   uint64
}

// Table interns type entries and answers layout queries. It is append-only:
// entries are never removed, and constructors are idempotent.
type Table struct {
	target   Target
	builtins Builtins

	entries  []*Entry
	ints     map[intKey]*Entry
	pointers map[childConstKey]*Entry
	arrays   map[arrayKey]*Entry
	slices   map[childConstKey]*Entry
	maybes   map[*Entry]*Entry
	fns      map[string]*Entry
}

// NewTable builds a table seeded with all primitive types for the target.
func NewTable(target Target) *Table {
	t := &Table{
		target:   target,
		ints:     make(map[intKey]*Entry, 8),
		pointers: make(map[childConstKey]*Entry, 32),
		arrays:   make(map[arrayKey]*Entry, 16),
		slices:   make(map[childConstKey]*Entry, 16),
		maybes:   make(map[*Entry]*Entry, 16),
		fns:      make(map[string]*Entry, 16),
	}
	t.defineBuiltins()
	return t
}

func (t *Table) defineBuiltins() {
	b := &t.builtins

	b.Invalid = t.register(&Entry{Kind: KindInvalid, Name: "(invalid)"})

	for _, bits := range []uint64{8, 16, 32, 64} {
		for _, signed := range []bool{true, false} {
			prefix := byte('u')
			if signed {
				prefix = 'i'
			}
			e := t.register(&Entry{
				Kind:        KindInt,
				Name:        fmt.Sprintf("%c%d", prefix, bits),
				SizeInBits:  bits,
				AlignInBits: bits,
				LL:          lltypes.NewInt(bits),
				Int:         &IntInfo{IsSigned: signed},
			})
			t.ints[intKey{signed: signed, bits: bits}] = e
		}
	}
	b.I8, b.I16, b.I32, b.I64 = t.mustInt(true, 8), t.mustInt(true, 16), t.mustInt(true, 32), t.mustInt(true, 64)
	b.U8, b.U16, b.U32, b.U64 = t.mustInt(false, 8), t.mustInt(false, 16), t.mustInt(false, 32), t.mustInt(false, 64)

	// isize/usize are distinct entries sized to the target pointer width;
	// their overflow intrinsics are shared with the fixed-width peer.
	b.Isize = t.register(&Entry{
		Kind:        KindInt,
		Name:        "isize",
		SizeInBits:  t.target.PtrBits,
		AlignInBits: t.target.PtrBits,
		LL:          lltypes.NewInt(t.target.PtrBits),
		Int:         &IntInfo{IsSigned: true},
	})
	b.Usize = t.register(&Entry{
		Kind:        KindInt,
		Name:        "usize",
		SizeInBits:  t.target.PtrBits,
		AlignInBits: t.target.PtrBits,
		LL:          lltypes.NewInt(t.target.PtrBits),
		Int:         &IntInfo{IsSigned: false},
	})

	b.Bool = t.register(&Entry{
		Kind:        KindBool,
		Name:        "bool",
		SizeInBits:  8,
		AlignInBits: 8,
		LL:          lltypes.I1,
	})
	b.F32 = t.register(&Entry{
		Kind:        KindFloat,
		Name:        "f32",
		SizeInBits:  32,
		AlignInBits: 32,
		LL:          lltypes.Float,
	})
	b.F64 = t.register(&Entry{
		Kind:        KindFloat,
		Name:        "f64",
		SizeInBits:  64,
		AlignInBits: 64,
		LL:          lltypes.Double,
	})
	b.Void = t.register(&Entry{Kind: KindVoid, Name: "void", LL: lltypes.Void})
	b.Unreachable = t.register(&Entry{Kind: KindUnreachable, Name: "unreachable", LL: lltypes.Void})
	b.MetaType = t.register(&Entry{Kind: KindMetaType, Name: "type"})
	b.NumLitInt = t.register(&Entry{Kind: KindNumLit, Name: "(integer literal)", SizeInBits: 64})
	b.NumLitFloat = t.register(&Entry{Kind: KindNumLit, Name: "(float literal)", SizeInBits: 64})

	b.CStrLit = t.PointerTo(b.U8, true)
}

func (t *Table) register(e *Entry) *Entry {
	if _, err := safecast.Conv[uint32](len(t.entries)); err != nil {
		panic(fmt.Errorf("types: entry count overflow: %w", err))
	}
	t.entries = append(t.entries, e)
	return e
}

func (t *Table) mustInt(signed bool, bits uint64) *Entry {
	e, ok := t.ints[intKey{signed: signed, bits: bits}]
	if !ok {
		panic(fmt.Sprintf("types: missing builtin int (signed=%v bits=%d)", signed, bits))
	}
	return e
}

// Builtins returns the distinguished entries.
func (t *Table) Builtins() *Builtins {
	return &t.builtins
}

// Target returns the table's target description.
func (t *Table) Target() Target {
	return t.target
}

// Entries returns the append-only registry of all entries created so far.
func (t *Table) Entries() []*Entry {
	return t.entries
}

// IntType returns the interned integer type of the given signedness and
// width. Width must be 8, 16, 32 or 64.
func (t *Table) IntType(signed bool, bits uint64) *Entry {
	return t.mustInt(signed, bits)
}

// PointerTo returns the interned pointer type &child or &const child.
func (t *Table) PointerTo(child *Entry, isConst bool) *Entry {
	if child.Kind == KindInvalid {
		panic("types: pointer to invalid type")
	}
	key := childConstKey{child: child, isConst: isConst}
	if e, ok := t.pointers[key]; ok {
		return e
	}
	constStr := ""
	if isConst {
		constStr = "const "
	}
	e := t.register(&Entry{
		Kind:        KindPointer,
		Name:        fmt.Sprintf("&%s%s", constStr, child.Name),
		SizeInBits:  t.target.PtrBits,
		AlignInBits: t.target.PtrBits,
		LL:          lltypes.NewPointer(child.LL),
		Pointer:     &PointerInfo{Child: child, IsConst: isConst},
	})
	t.pointers[key] = e
	return e
}

// ArrayOf returns the interned fixed-size array type [len]child.
func (t *Table) ArrayOf(child *Entry, length uint64) *Entry {
	key := arrayKey{child: child, len: length}
	if e, ok := t.arrays[key]; ok {
		return e
	}
	e := t.register(&Entry{
		Kind:        KindArray,
		Name:        fmt.Sprintf("[%d]%s", length, child.Name),
		SizeInBits:  child.SizeInBits * length,
		AlignInBits: child.AlignInBits,
		LL:          lltypes.NewArray(length, child.LL),
		Array:       &ArrayInfo{Child: child, Len: length},
	})
	t.arrays[key] = e
	return e
}

// SliceOf returns the interned unknown-size array type []child, a two-field
// struct {ptr: &child, len: isize}. The const flavor shares the mutable
// flavor's low-level type.
func (t *Table) SliceOf(child *Entry, isConst bool) *Entry {
	if child.Kind == KindInvalid {
		panic("types: slice of invalid type")
	}
	key := childConstKey{child: child, isConst: isConst}
	if e, ok := t.slices[key]; ok {
		return e
	}

	pointerType := t.PointerTo(child, isConst)
	constStr := ""
	if isConst {
		constStr = "const "
	}
	name := fmt.Sprintf("[]%s%s", constStr, child.Name)

	var ll lltypes.Type
	if isConst {
		ll = t.SliceOf(child, false).LL
	} else {
		st := lltypes.NewStruct(pointerType.LL, t.builtins.Isize.LL)
		st.TypeName = name
		ll = st
	}

	e := t.register(&Entry{
		Kind:        KindStruct,
		Name:        name,
		SizeInBits:  t.target.PtrBits * 2,
		AlignInBits: t.target.PtrBits,
		LL:          ll,
		Struct: &StructInfo{
			IsSlice:       true,
			GenFieldCount: 2,
			Fields: []StructField{
				{Name: "ptr", Type: pointerType, SrcIndex: 0, GenIndex: 0},
				{Name: "len", Type: t.builtins.Isize, SrcIndex: 1, GenIndex: 1},
			},
		},
	})
	t.slices[key] = e
	return e
}

// MaybeOf returns the interned optional type ?child, a two-field struct
// {value: child, present: bool}.
func (t *Table) MaybeOf(child *Entry) *Entry {
	if e, ok := t.maybes[child]; ok {
		return e
	}
	e := t.register(&Entry{
		Kind:        KindMaybe,
		Name:        "?" + child.Name,
		SizeInBits:  child.SizeInBits + 8,
		AlignInBits: child.AlignInBits,
		LL:          lltypes.NewStruct(child.LL, lltypes.I1),
		Maybe:       &MaybeInfo{Child: child},
	})
	t.maybes[child] = e
	return e
}

// FnType returns the interned function type with the given signature.
func (t *Table) FnType(params []*Entry, ret *Entry, isVarArgs bool, cc enum.CallingConv) *Entry {
	key := fnKey(params, ret, isVarArgs, cc)
	if e, ok := t.fns[key]; ok {
		return e
	}

	llParams := make([]lltypes.Type, 0, len(params))
	for _, p := range params {
		if p.SizeInBits == 0 {
			continue
		}
		if HandleIsPtr(p) {
			llParams = append(llParams, lltypes.NewPointer(p.LL))
		} else {
			llParams = append(llParams, p.LL)
		}
	}
	llRet := ret.LL
	if ret.Kind == KindUnreachable {
		llRet = lltypes.Void
	}
	sig := lltypes.NewFunc(llRet, llParams...)
	sig.Variadic = isVarArgs

	e := t.register(&Entry{
		Kind:        KindFn,
		Name:        fnName(params, ret),
		SizeInBits:  t.target.PtrBits,
		AlignInBits: t.target.PtrBits,
		LL:          sig,
		Fn: &FnInfo{
			Params:        params,
			Return:        ret,
			SrcParamCount: len(params),
			IsVarArgs:     isVarArgs,
			CallingConv:   cc,
		},
	})
	t.fns[key] = e
	return e
}

func fnKey(params []*Entry, ret *Entry, isVarArgs bool, cc enum.CallingConv) string {
	key := fmt.Sprintf("%p|%v|%d", ret, isVarArgs, cc)
	for _, p := range params {
		key += fmt.Sprintf("|%p", p)
	}
	return key
}

func fnName(params []*Entry, ret *Entry) string {
	name := "fn("
	for i, p := range params {
		if i > 0 {
			name += ", "
		}
		name += p.Name
	}
	return name + ") -> " + ret.Name
}
