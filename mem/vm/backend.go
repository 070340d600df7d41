package vm

import "errors"

// Translation failures. Every one of them surfaces to the guest as the access
// fault matching the access kind; they stay distinct so that callers and
// tests can tell why a translation failed.
var (
	// ErrTranslationMiss means no mapping covers the address.
	ErrTranslationMiss = errors.New("no translation")

	// ErrTranslationDenied means a mapping exists but its type code does not
	// grant the access.
	ErrTranslationDenied = errors.New("translation denied")

	// ErrNonCanonical means the unused high bits of the virtual address are
	// not a sign extension of the top significant bit.
	ErrNonCanonical = errors.New("virtual address is not canonical")

	// ErrPTEOutOfRange means a page-table entry lies outside guest memory.
	ErrPTEOutOfRange = errors.New("page table entry outside guest memory")

	// ErrUnsupportedMode means the VM mode cannot be walked.
	ErrUnsupportedMode = errors.New("unsupported virtual memory mode")
)

// A Backend turns a virtual address into the base address of the physical
// page that holds it.
//
// The returned base is page aligned. For superpage and megapage mappings the
// low virtual page-number bits are already merged in, so the caller only adds
// the page offset.
type Backend interface {
	Translate(vAddr uint64, priv Privilege, kind AccessKind) (uint64, error)
}
