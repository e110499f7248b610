package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileGlob(t *testing.T) {
	tests := []struct {
		glob  string
		name  string
		match bool
	}{
		{"thumbnail*", "thumbnail_large.jpg", true},
		{"thumbnail*", "THUMBNAIL.jpg", false},
		{"thumbnail*", "my_thumbnail.jpg", false},
		{"*.tif", "fig1.tif", true},
		{"*.tif", "fig1.tiff", false},
		{"*.tif", "fig1xtif", false},
		{"fig?.tif", "fig1.tif", true},
		{"fig?.tif", "fig12.tif", false},
		{"fig?.tif", "fig.tif", false},
		{`a\b`, `a\b`, true},
		{`a\b`, `ab`, false},
		{"report(1)+.pdf", "report(1)+.pdf", true},
		{"[abc]", "a", false},
		{"[abc]", "[abc]", true},
		{"*", "", true},
		{"*", "multi\nline", true},
		{"", "anything.at.all", true},
	}

	for _, tt := range tests {
		t.Run(tt.glob+"|"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, CompileGlob(tt.glob).MatchString(tt.name))
		})
	}
}

func TestCompileGlobBracketsAreLiteral(t *testing.T) {
	pattern := CompileGlob("*.[jt]if")
	assert.False(t, pattern.MatchString("fig.jif"))
	assert.False(t, pattern.MatchString("fig.tif"))
	assert.True(t, pattern.MatchString("fig.[jt]if"))

	pattern = CompileGlob("(a|b)*")
	assert.False(t, pattern.MatchString("a.tif"))
	assert.True(t, pattern.MatchString("(a|b).tif"))
}

func newTestSelector(criteria Criteria, existing map[string]bool, supported bool) *Selector {
	return New(criteria,
		func(ctx context.Context, c Candidate) (bool, error) {
			return existing[c.Name], nil
		},
		func(c Candidate) bool { return supported },
		nil,
	)
}

func TestEvaluateOrder(t *testing.T) {
	ctx := context.Background()
	criteria := Criteria{
		Pattern: CompileGlob("*.tif"),
		MinSize: 100,
		Formats: []string{"TIFF"},
	}
	sel := newTestSelector(criteria, map[string]bool{"done.tif": true}, true)

	tests := []struct {
		name      string
		candidate Candidate
		want      Verdict
	}{
		{"eligible", Candidate{Name: "fig1.tif", Size: 100, Format: "TIFF"}, Verdict{Eligible: true}},
		{"too small wins over name", Candidate{Name: "fig1.png", Size: 99, Format: "PNG"}, Verdict{Reason: ReasonTooSmall}},
		{"name mismatch", Candidate{Name: "fig1.png", Size: 500, Format: "TIFF"}, Verdict{Reason: ReasonNameMismatch}},
		{"target exists", Candidate{Name: "done.tif", Size: 500, Format: "PNG"}, Verdict{Reason: ReasonTargetExists}},
		{"format not listed", Candidate{Name: "fig2.tif", Size: 500, Format: "PNG"}, Verdict{Reason: ReasonFormatNotListed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sel.Evaluate(ctx, tt.candidate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateForceIgnoresExistingTarget(t *testing.T) {
	criteria := Criteria{Pattern: CompileGlob("*"), Force: true}
	lookups := 0
	sel := New(criteria,
		func(ctx context.Context, c Candidate) (bool, error) {
			lookups++
			return true, nil
		},
		func(c Candidate) bool { return true },
		nil,
	)

	got, err := sel.Evaluate(context.Background(), Candidate{Name: "done.tif"})
	require.NoError(t, err)
	assert.True(t, got.Eligible)
	assert.Zero(t, lookups, "force skips the lookup")
}

func TestEvaluateEmptyFormatListAllowsAll(t *testing.T) {
	sel := newTestSelector(Criteria{}, nil, true)
	got, err := sel.Evaluate(context.Background(), Candidate{Name: "x.bin", Format: "Unknown"})
	require.NoError(t, err)
	assert.True(t, got.Eligible)
}

func TestEvaluateUnsupported(t *testing.T) {
	sel := newTestSelector(Criteria{}, nil, false)
	got, err := sel.Evaluate(context.Background(), Candidate{Name: "x.bin"})
	require.NoError(t, err)
	assert.Equal(t, Verdict{Reason: ReasonUnsupported}, got)
}

func TestEvaluateLookupError(t *testing.T) {
	boom := errors.New("boom")
	sel := New(Criteria{},
		func(ctx context.Context, c Candidate) (bool, error) { return false, boom },
		nil, nil)
	_, err := sel.Evaluate(context.Background(), Candidate{Name: "x"})
	assert.ErrorIs(t, err, boom)
}
