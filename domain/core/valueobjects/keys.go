package valueobjects

import (
	"errors"
	"fmt"
)

// DAGKey is the composite key identifying one cached DAG payload.
type DAGKey struct {
	DomainID string
	BaseID   string
	Branch   string
}

// NewDAGKey builds a DAGKey, defaulting an empty branch to main.
func NewDAGKey(domainID, baseID, branch string) (DAGKey, error) {
	if domainID == "" {
		return DAGKey{}, errors.New("domain ID cannot be empty")
	}
	if baseID == "" {
		return DAGKey{}, errors.New("base ID cannot be empty")
	}
	b, err := NewBranch(branch)
	if err != nil {
		return DAGKey{}, err
	}
	return DAGKey{DomainID: domainID, BaseID: baseID, Branch: b.String()}, nil
}

// String renders the key in cache-key form.
func (k DAGKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DomainID, k.BaseID, k.Branch)
}

// StateKey identifies one user's learn state within a domain.
type StateKey struct {
	DomainID string
	UserID   string
}

// NewStateKey builds a StateKey.
func NewStateKey(domainID, userID string) (StateKey, error) {
	if domainID == "" {
		return StateKey{}, errors.New("domain ID cannot be empty")
	}
	if userID == "" {
		return StateKey{}, errors.New("user ID cannot be empty")
	}
	return StateKey{DomainID: domainID, UserID: userID}, nil
}

// String renders the key in cache-key form.
func (k StateKey) String() string {
	return fmt.Sprintf("%s/%s", k.DomainID, k.UserID)
}
