package trainset

import (
	"fmt"
	"math"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

const ratioTolerance = 1e-9

// Ratio is the target share of positives, hard negatives and easy negatives.
type Ratio struct {
	Positive float64 `yaml:"positive"`
	Hard     float64 `yaml:"hard"`
	Easy     float64 `yaml:"easy"`
}

// DefaultRatio is 70% relevant, 20% judged irrelevant, 10% never judged.
var DefaultRatio = Ratio{Positive: 0.7, Hard: 0.2, Easy: 0.1}

// Validate requires positive shares summing to 1.
func (r Ratio) Validate() error {
	if r.Positive <= 0 || r.Hard <= 0 || r.Easy <= 0 {
		return fmt.Errorf("%w: ratio shares must be positive, got %v", errs.ErrInvalidConfiguration, r)
	}
	if sum := r.Positive + r.Hard + r.Easy; math.Abs(sum-1) > ratioTolerance {
		return fmt.Errorf("%w: ratio shares sum to %g, want 1", errs.ErrInvalidConfiguration, sum)
	}
	return nil
}

// NegativeCounts scales the fixed positive count to the hard and easy shares,
// rounding up so realized ratios never fall below the nominal ones.
func NegativeCounts(relevant int, r Ratio) (hard, easy int) {
	if relevant <= 0 {
		return 0, 0
	}
	scale := float64(relevant) / r.Positive
	return int(math.Ceil(scale * r.Hard)), int(math.Ceil(scale * r.Easy))
}
