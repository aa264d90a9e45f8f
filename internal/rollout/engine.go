package rollout

import (
	"fmt"
	"sync"
)

// RoleBasedConfig lists the roles that unlock a feature.
type RoleBasedConfig struct {
	Roles  []string `json:"roles"`
	Active bool     `json:"active"`
}

// PercentageConfig enables a feature for Value percent of identifiers.
type PercentageConfig struct {
	Value  int  `json:"value"`
	Active bool `json:"active"`
}

// Config is the persisted decision block of a feature flag.
type Config struct {
	RoleBased  RoleBasedConfig  `json:"roleBased"`
	Percentage PercentageConfig `json:"percentage"`
	Enabled    bool             `json:"enabled"`
}

// UserContext is the authenticated caller. A nil *UserContext means anonymous.
type UserContext struct {
	ID    string          `json:"id"`
	Roles map[string]bool `json:"roles"`
}

// Decision is the outcome of one evaluation together with the strategy that
// produced it.
type Decision struct {
	Enabled  bool         `json:"enabled"`
	Strategy StrategyName `json:"strategy"`
}

// IdentifierFunc supplies the percentage seed for callers without a user id.
type IdentifierFunc func() (string, error)

// Evaluator runs the decision engine with an injectable identifier source.
// The zero value is not usable; use NewEvaluator.
type Evaluator struct {
	identifier IdentifierFunc
}

type EvaluatorOption func(*Evaluator)

// WithIdentifierFunc overrides the anonymous identifier source.
func WithIdentifierFunc(fn IdentifierFunc) EvaluatorOption {
	return func(e *Evaluator) {
		e.identifier = fn
	}
}

// WithStickyIdentifier makes every anonymous evaluation on this evaluator use
// the same random identifier. Build one evaluator per request to keep answers
// consistent inside the request.
func WithStickyIdentifier() EvaluatorOption {
	return func(e *Evaluator) {
		var (
			once sync.Once
			id   string
			err  error
		)
		e.identifier = func() (string, error) {
			once.Do(func() {
				id, err = RandomIdentifier()
			})
			return id, err
		}
	}
}

// NewEvaluator returns an evaluator that draws a fresh random identifier for
// every anonymous percentage evaluation unless an option says otherwise.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{identifier: RandomIdentifier}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy selects the single strategy that decides cfg for user.
// Role-based wins when active and a user is present, then percentage, then the
// plain toggle.
func (e *Evaluator) Strategy(cfg *Config, user *UserContext) (Strategy, error) {
	if cfg == nil {
		return nil, ErrMissingConfiguration
	}

	if cfg.RoleBased.Active && user != nil {
		return RoleBased{AllowedRoles: cfg.RoleBased.Roles, UserRoles: user.Roles}, nil
	}

	if cfg.Percentage.Active {
		var id string
		if user != nil {
			id = user.ID
		}
		if id == "" {
			var err error
			id, err = e.identifier()
			if err != nil {
				return nil, err
			}
		}
		return Percentage{Value: cfg.Percentage.Value, Identifier: id}, nil
	}

	return Toggle{Enabled: cfg.Enabled}, nil
}

// Evaluate decides cfg for user and reports the deciding strategy.
func (e *Evaluator) Evaluate(cfg *Config, user *UserContext) (Decision, error) {
	strategy, err := e.Strategy(cfg, user)
	if err != nil {
		return Decision{}, err
	}
	enabled, err := strategy.Decide()
	if err != nil {
		return Decision{}, fmt.Errorf("%s rollout: %w", strategy.Name(), err)
	}
	return Decision{Enabled: enabled, Strategy: strategy.Name()}, nil
}

// Decide reports whether cfg enables the feature for user.
func (e *Evaluator) Decide(cfg *Config, user *UserContext) (bool, error) {
	d, err := e.Evaluate(cfg, user)
	return d.Enabled, err
}

var defaultEvaluator = NewEvaluator()

// Decide evaluates cfg with a per-call random identifier for anonymous users.
func Decide(cfg *Config, user *UserContext) (bool, error) {
	return defaultEvaluator.Decide(cfg, user)
}

// Evaluate is Decide that also reports the deciding strategy.
func Evaluate(cfg *Config, user *UserContext) (Decision, error) {
	return defaultEvaluator.Evaluate(cfg, user)
}

// Validate reports configuration errors without evaluating.
func (c *Config) Validate() error {
	if c == nil {
		return ErrMissingConfiguration
	}
	if c.Percentage.Value < 0 || c.Percentage.Value > 100 {
		return fmt.Errorf("percentage value %d out of range [0,100]: %w", c.Percentage.Value, ErrInvalidConfiguration)
	}
	return nil
}
