// Package naming gives simulated hardware objects hierarchical names.
package naming

import (
	"fmt"
	"log"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name of the object.
func (b *NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase. Empty names are not allowed.
func MakeNamedBase(name string) NamedBase {
	if name == "" {
		log.Panic("name must not be empty")
	}

	return NamedBase{name: name}
}

// Child returns the name of an element that belongs to parent, for example
// Child("Machine", "Core", 1) is "Machine.Core[1]". A negative index omits
// the brackets.
func Child(parent, elem string, index int) string {
	name := elem
	if index >= 0 {
		name = fmt.Sprintf("%s[%d]", elem, index)
	}

	if parent == "" {
		return name
	}

	return parent + "." + name
}
