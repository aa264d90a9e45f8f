package rollout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// StrategyName identifies which rollout strategy produced a decision.
type StrategyName string

const (
	StrategyRoleBased  StrategyName = "ROLE_BASED"
	StrategyPercentage StrategyName = "PERCENTAGE"
	StrategyToggle     StrategyName = "TOGGLE"
)

const identifierBytes = 8

// Strategy decides whether a feature is enabled for a single evaluation.
type Strategy interface {
	Name() StrategyName
	Decide() (bool, error)
}

// RoleBased enables the feature when any allowed role is set on the user.
type RoleBased struct {
	AllowedRoles []string
	UserRoles    map[string]bool
}

func (RoleBased) Name() StrategyName { return StrategyRoleBased }

func (r RoleBased) Decide() (bool, error) {
	for _, role := range r.AllowedRoles {
		if r.UserRoles[role] {
			return true, nil
		}
	}
	return false, nil
}

// Percentage buckets Identifier into [0,100) and enables the feature for the
// first Value buckets.
type Percentage struct {
	Value      int
	Identifier string
}

func (Percentage) Name() StrategyName { return StrategyPercentage }

func (p Percentage) Decide() (bool, error) {
	if p.Value < 0 || p.Value > 100 {
		return false, fmt.Errorf("percentage value %d out of range [0,100]: %w", p.Value, ErrInvalidConfiguration)
	}
	id := p.Identifier
	if id == "" {
		var err error
		id, err = RandomIdentifier()
		if err != nil {
			return false, err
		}
	}
	return Hash(id)%100 < uint32(p.Value), nil
}

// Toggle returns the configured switch unchanged.
type Toggle struct {
	Enabled bool
}

func (Toggle) Name() StrategyName { return StrategyToggle }

func (t Toggle) Decide() (bool, error) {
	return t.Enabled, nil
}

// RandomIdentifier returns 16 random hex characters.
func RandomIdentifier() (string, error) {
	b := make([]byte, identifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate rollout identifier: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var (
	_ Strategy = RoleBased{}
	_ Strategy = Percentage{}
	_ Strategy = Toggle{}
)
