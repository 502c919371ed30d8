package layout

import (
	"math"

	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
)

// StepBoxes are the rectangles checked for overlaps. CSI and PLI are
// relative to the step; Step and Page are in page space.
type StepBoxes struct {
	Step geom.Rect
	CSI  geom.Rect
	PLI  geom.Rect
	Page geom.Rect
}

// CheckForLayoutOverlaps reports whether the CSI leaves the step, the CSI
// and PLI intersect, or the step leaves the page.
func CheckForLayoutOverlaps(b StepBoxes) bool {
	local := geom.R(0, 0, b.Step.W, b.Step.H)
	if !local.Contains(b.CSI) {
		return true
	}
	if b.CSI.Intersects(b.PLI) {
		return true
	}
	return !b.Page.Contains(b.Step)
}

// DefaultShrinkStep is the scale decrement of ShrinkToFit.
const DefaultShrinkStep = 0.2

// ShrinkToFit lowers scale from start by step until fits reports true or
// the next scale would drop below floor. It returns the last scale tried.
// Reaching the floor with fits still false yields an OVERLAP_UNRESOLVABLE
// error; the scale is still usable.
func ShrinkToFit(start, step, floor float64, fits func(scale float64) bool) (float64, error) {
	if step <= 0 {
		step = DefaultShrinkStep
	}
	if floor <= 0 {
		floor = step
	}
	scale := start
	for {
		if fits(scale) {
			return scale, nil
		}
		next := math.Round((scale-step)*1e6) / 1e6
		if next < floor {
			return scale, errors.New(errors.ErrCodeOverlapUnresolvable,
				"overlap persists at scale %.2f (floor %.2f)", scale, floor)
		}
		scale = next
	}
}
