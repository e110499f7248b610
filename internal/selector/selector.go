// Package selector decides which assets of an item a media filter task
// should process.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// Reason explains why a candidate was rejected
type Reason string

// Rejection reasons, in evaluation order
const (
	ReasonNone            Reason = ""
	ReasonTooSmall        Reason = "too_small"
	ReasonNameMismatch    Reason = "name_mismatch"
	ReasonTargetExists    Reason = "target_exists"
	ReasonFormatNotListed Reason = "format_not_listed"
	ReasonUnsupported     Reason = "unsupported"
)

// CompileGlob turns a file name glob into an anchored pattern. '*' matches
// any sequence, '?' any single character, everything else is literal. An
// empty glob matches every name.
func CompileGlob(glob string) *regexp.Regexp {
	if glob == "" {
		glob = "*"
	}
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	for _, c := range glob {
		switch c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

// Candidate is the view of an asset the selector decides on
type Candidate struct {
	Name       string
	Size       int64
	MediaType  string
	Format     string
	Extensions []string
}

// Verdict is the selector's decision for one candidate
type Verdict struct {
	Eligible bool
	Reason   Reason
}

// Criteria holds the configured selection parameters
type Criteria struct {
	Pattern *regexp.Regexp
	MinSize int64
	Formats []string
	Force   bool
}

// TargetLookup reports whether a derivative already exists for a candidate
type TargetLookup func(ctx context.Context, c Candidate) (bool, error)

// CapabilityCheck reports whether the transform can handle a candidate
type CapabilityCheck func(c Candidate) bool

// Selector evaluates candidates against criteria
type Selector struct {
	criteria Criteria
	exists   TargetLookup
	supports CapabilityCheck
	logger   *slog.Logger
}

// New creates a selector. A nil pattern matches every name.
func New(criteria Criteria, exists TargetLookup, supports CapabilityCheck, logger *slog.Logger) *Selector {
	if criteria.Pattern == nil {
		criteria.Pattern = CompileGlob("*")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		criteria: criteria,
		exists:   exists,
		supports: supports,
		logger:   logger,
	}
}

// Evaluate runs the checks in order and stops at the first failure. The
// only error it returns comes from the existing-target lookup.
func (s *Selector) Evaluate(ctx context.Context, c Candidate) (Verdict, error) {
	if c.Size < s.criteria.MinSize {
		s.logger.Debug("asset below minimum size", "asset", c.Name, "size", c.Size, "min_size", s.criteria.MinSize)
		return Verdict{Reason: ReasonTooSmall}, nil
	}

	if !s.criteria.Pattern.MatchString(c.Name) {
		s.logger.Debug("asset does not match selector", "asset", c.Name, "pattern", s.criteria.Pattern.String())
		return Verdict{Reason: ReasonNameMismatch}, nil
	}

	if !s.criteria.Force && s.exists != nil {
		exists, err := s.exists(ctx, c)
		if err != nil {
			return Verdict{}, fmt.Errorf("existing target lookup failed: %w", err)
		}
		if exists {
			s.logger.Debug("asset target already exists", "asset", c.Name)
			return Verdict{Reason: ReasonTargetExists}, nil
		}
	}

	if len(s.criteria.Formats) > 0 && !slices.Contains(s.criteria.Formats, c.Format) {
		s.logger.Debug("asset format not listed", "asset", c.Name, "format", c.Format)
		return Verdict{Reason: ReasonFormatNotListed}, nil
	}

	if s.supports != nil && !s.supports(c) {
		s.logger.Debug("asset format not supported by transform", "asset", c.Name, "media_type", c.MediaType)
		return Verdict{Reason: ReasonUnsupported}, nil
	}

	return Verdict{Eligible: true}, nil
}
