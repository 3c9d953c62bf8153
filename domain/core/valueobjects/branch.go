package valueobjects

import (
	"errors"
)

// DefaultBranch is the implicit branch used when none is named.
const DefaultBranch = "main"

// SkillsBranch selects the skills variant of a domain's base document.
const SkillsBranch = "skills"

// Branch is a value object naming a content-graph variant.
// Value objects are immutable and have no identity beyond their value.
type Branch struct {
	name string
}

// NewBranch validates and creates a Branch. An empty name resolves to the
// default branch; an invalid name is rejected before any state is touched.
func NewBranch(name string) (Branch, error) {
	if name == "" {
		return Branch{name: DefaultBranch}, nil
	}
	if len(name) > 64 {
		return Branch{}, errors.New("branch name too long")
	}
	for _, r := range name {
		if !isBranchRune(r) {
			return Branch{}, errors.New("branch name contains invalid characters")
		}
	}
	return Branch{name: name}, nil
}

// String returns the branch name.
func (b Branch) String() string {
	return b.name
}

// IsDefault reports whether this is the implicit main branch.
func (b Branch) IsDefault() bool {
	return b.name == DefaultBranch
}

func isBranchRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}
