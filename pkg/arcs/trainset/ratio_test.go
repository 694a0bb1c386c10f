package trainset

import (
	"errors"
	"testing"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

func TestNegativeCounts(t *testing.T) {
	tests := []struct {
		relevant   int
		hard, easy int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 1, 1},
		{3, 1, 1},
		{5, 2, 1},
		{7, 2, 1},
		{10, 3, 2},
		{14, 4, 2},
		{20, 6, 3},
		{35, 10, 5},
		{100, 29, 15},
	}
	for _, tt := range tests {
		hard, easy := NegativeCounts(tt.relevant, DefaultRatio)
		if hard != tt.hard || easy != tt.easy {
			t.Errorf("NegativeCounts(%d) = (%d, %d), want (%d, %d)", tt.relevant, hard, easy, tt.hard, tt.easy)
		}
	}
}

func TestRatioValidate(t *testing.T) {
	if err := DefaultRatio.Validate(); err != nil {
		t.Fatalf("DefaultRatio invalid: %v", err)
	}

	bad := []Ratio{
		{0.5, 0.2, 0.1},
		{0.7, 0.3, 0.0},
		{1.2, -0.1, -0.1},
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, errs.ErrInvalidConfiguration) {
			t.Errorf("%v: expected ErrInvalidConfiguration, got %v", r, err)
		}
	}
}
