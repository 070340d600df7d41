package vm

import "strings"

// Bit layout of a page attribute word. Regular pages and megapages carry the
// physical page number at different offsets.
const (
	AttrValid        uint32 = 1 << 0
	AttrTypeOffset          = 1
	AttrTypeMask     uint32 = 0xf << AttrTypeOffset
	AttrReferenced   uint32 = 1 << 5
	AttrDirty        uint32 = 1 << 6
	AttrNonCacheable uint32 = 1 << 7
	AttrMegapage     uint32 = 1 << 8

	AttrPPNOffset  = 10
	AttrPPNBits    = 20
	AttrPPNMask    = uint32(1<<AttrPPNBits-1) << AttrPPNOffset
	AttrMPPNOffset = 20
	AttrMPPNBits   = 10
	AttrMPPNMask   = uint32(1<<AttrMPPNBits-1) << AttrMPPNOffset
)

// PageAttr is the raw page attribute word of an architectural TLB entry.
type PageAttr uint32

// Valid tells if the entry holds a mapping.
func (a PageAttr) Valid() bool {
	return uint32(a)&AttrValid != 0
}

// Type returns the permission-matrix row of the entry.
func (a PageAttr) Type() TypeCode {
	return TypeCode((uint32(a) & AttrTypeMask) >> AttrTypeOffset)
}

// Referenced tells if the mapping has been used since installed.
func (a PageAttr) Referenced() bool {
	return uint32(a)&AttrReferenced != 0
}

// Dirty tells if the mapping has been written through.
func (a PageAttr) Dirty() bool {
	return uint32(a)&AttrDirty != 0
}

// NonCacheable returns the non-cacheable flag.
func (a PageAttr) NonCacheable() bool {
	return uint32(a)&AttrNonCacheable != 0
}

// Megapage tells if the entry maps a 4 MiB region.
func (a PageAttr) Megapage() bool {
	return uint32(a)&AttrMegapage != 0
}

// PPN returns the physical page number, in units of the entry's page size.
func (a PageAttr) PPN() uint64 {
	if a.Megapage() {
		return uint64((uint32(a) & AttrMPPNMask) >> AttrMPPNOffset)
	}

	return uint64((uint32(a) & AttrPPNMask) >> AttrPPNOffset)
}

// PhysBase returns the physical address the entry maps to.
func (a PageAttr) PhysBase() uint64 {
	if a.Megapage() {
		return a.PPN() << Log2MegapageSize
	}

	return a.PPN() << Log2PageSize
}

// Log2Size returns the log2 of the region size covered by the entry.
func (a PageAttr) Log2Size() uint {
	if a.Megapage() {
		return Log2MegapageSize
	}

	return Log2PageSize
}

// WithAccess returns the attribute with the referenced bit set, and the dirty
// bit as well for stores.
func (a PageAttr) WithAccess(kind AccessKind) PageAttr {
	a |= PageAttr(AttrReferenced)
	if kind == Store {
		a |= PageAttr(AttrDirty)
	}

	return a
}

// Flags renders the M/C/D/R/V flags, blank where unset.
func (a PageAttr) Flags() string {
	var sb strings.Builder

	flag := func(set bool, c byte) {
		if set {
			sb.WriteByte(c)
		} else {
			sb.WriteByte(' ')
		}
	}

	flag(a.Megapage(), 'M')
	flag(a.NonCacheable(), 'C')
	flag(a.Dirty(), 'D')
	flag(a.Referenced(), 'R')
	flag(a.Valid(), 'V')

	return sb.String()
}

// PageAttrBuilder can build page attributes.
type PageAttrBuilder struct {
	valid, referenced, dirty, nonCacheable, megapage bool

	typeCode TypeCode
	ppn      uint64
}

// WithValid sets the valid bit.
func (b PageAttrBuilder) WithValid(v bool) PageAttrBuilder {
	b.valid = v
	return b
}

// WithType sets the permission-matrix row.
func (b PageAttrBuilder) WithType(t TypeCode) PageAttrBuilder {
	b.typeCode = t
	return b
}

// WithPPN sets the physical page number, in units of the page size selected
// by WithMegapage.
func (b PageAttrBuilder) WithPPN(ppn uint64) PageAttrBuilder {
	b.ppn = ppn
	return b
}

// WithMegapage marks the entry as a megapage.
func (b PageAttrBuilder) WithMegapage(v bool) PageAttrBuilder {
	b.megapage = v
	return b
}

// WithReferenced sets the referenced bit.
func (b PageAttrBuilder) WithReferenced(v bool) PageAttrBuilder {
	b.referenced = v
	return b
}

// WithDirty sets the dirty bit.
func (b PageAttrBuilder) WithDirty(v bool) PageAttrBuilder {
	b.dirty = v
	return b
}

// WithNonCacheable sets the non-cacheable bit.
func (b PageAttrBuilder) WithNonCacheable(v bool) PageAttrBuilder {
	b.nonCacheable = v
	return b
}

// Build encodes the attribute word.
func (b PageAttrBuilder) Build() PageAttr {
	var w uint32

	if b.valid {
		w |= AttrValid
	}

	w |= (uint32(b.typeCode&typeCodeMask) << AttrTypeOffset)

	if b.referenced {
		w |= AttrReferenced
	}

	if b.dirty {
		w |= AttrDirty
	}

	if b.nonCacheable {
		w |= AttrNonCacheable
	}

	if b.megapage {
		w |= AttrMegapage
		w |= (uint32(b.ppn) << AttrMPPNOffset) & AttrMPPNMask
	} else {
		w |= (uint32(b.ppn) << AttrPPNOffset) & AttrPPNMask
	}

	return PageAttr(w)
}
