// Package policy assigns access rules to newly created derivatives, either
// by copying them from a donor object or by applying a fixed open or closed
// rule set.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Action is the operation a rule grants
type Action string

// Actions
const (
	ActionRead   Action = "READ"
	ActionWrite  Action = "WRITE"
	ActionAdd    Action = "ADD"
	ActionRemove Action = "REMOVE"
	ActionAdmin  Action = "ADMIN"
)

// GroupAnonymous is the group every caller belongs to
const GroupAnonymous = "Anonymous"

// Rule grants one action to one group
type Rule struct {
	Action Action `json:"action"`
	Group  string `json:"group"`
}

// Mode selects where a derivative's rules come from
type Mode string

// Modes
const (
	ModeBitstream  Mode = "bitstream"
	ModeBundle     Mode = "bundle"
	ModeItem       Mode = "item"
	ModeCollection Mode = "collection"
	ModeOpen       Mode = "open"
	ModeClosed     Mode = "closed"
)

// Known reports whether m is one of the recognised modes
func (m Mode) Known() bool {
	switch m {
	case ModeBitstream, ModeBundle, ModeItem, ModeCollection, ModeOpen, ModeClosed:
		return true
	}
	return false
}

// ParseMode trims and lower-cases s. Unrecognised values are kept as-is so
// they can be reported when applied.
func ParseMode(s string) Mode {
	return Mode(strings.ToLower(strings.TrimSpace(s)))
}

// Store reads and mutates the rules attached to objects
type Store interface {
	Rules(ctx context.Context, objectID string) ([]Rule, error)
	AddRule(ctx context.Context, objectID string, rule Rule) error
	RemoveByAction(ctx context.Context, objectID string, action Action) error
	Clear(ctx context.Context, objectID string) error
}

// Donors names the objects a derivative may inherit rules from. Collection
// is empty for items without an owning collection.
type Donors struct {
	Source     string
	Container  string
	Item       string
	Collection string
}

// Propagator applies a policy mode to derivatives
type Propagator struct {
	store  Store
	logger *slog.Logger
}

// NewPropagator creates a propagator over store
func NewPropagator(store Store, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{store: store, logger: logger}
}

// Apply clears every rule on target, then assigns rules according to mode.
// An unrecognised mode is logged and leaves target with no rules. Errors
// are returned only for store failures.
func (p *Propagator) Apply(ctx context.Context, mode Mode, target string, donors Donors) error {
	if err := p.store.Clear(ctx, target); err != nil {
		return fmt.Errorf("failed to clear rules on %s: %w", target, err)
	}

	var donor string
	switch mode {
	case ModeBitstream:
		donor = donors.Source
	case ModeBundle:
		donor = donors.Container
	case ModeItem:
		donor = donors.Item
	case ModeCollection:
		donor = donors.Collection
	case ModeOpen:
		if err := p.store.AddRule(ctx, target, Rule{Action: ActionRead, Group: GroupAnonymous}); err != nil {
			return fmt.Errorf("failed to open %s: %w", target, err)
		}
		return nil
	case ModeClosed:
		if err := p.copyRules(ctx, donors.Item, target); err != nil {
			return err
		}
		if err := p.store.RemoveByAction(ctx, target, ActionRead); err != nil {
			return fmt.Errorf("failed to remove read rules on %s: %w", target, err)
		}
		return nil
	default:
		p.logger.Error("unknown policy", "policy", string(mode), "target", target)
		return nil
	}

	if donor == "" {
		p.logger.Warn("policy donor missing, no rules applied", "policy", string(mode), "target", target)
		return nil
	}
	return p.copyRules(ctx, donor, target)
}

func (p *Propagator) copyRules(ctx context.Context, from, to string) error {
	rules, err := p.store.Rules(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to read rules of %s: %w", from, err)
	}
	for _, r := range rules {
		if err := p.store.AddRule(ctx, to, r); err != nil {
			return fmt.Errorf("failed to copy rule to %s: %w", to, err)
		}
	}
	return nil
}
