package stealth

import (
	"math"
	"time"
)

// ScrollStep is one wheel event of a scroll plan
type ScrollStep struct {
	Delta int
	Delay time.Duration
}

// Scroll splits distance into eased chunks: small at the ends, larger in the
// middle. Negative distances scroll up. The deltas always sum to distance.
func (h *Humanizer) Scroll(distance int) []ScrollStep {
	if distance == 0 {
		return nil
	}
	sign := 1
	if distance < 0 {
		sign, distance = -1, -distance
	}

	lo, hi := h.cfg.ScrollChunkMin, h.cfg.ScrollChunkMax
	chunks := int(math.Ceil(float64(distance) / float64((lo+hi)/2)))
	if chunks < 1 {
		chunks = 1
	}

	steps := make([]ScrollStep, 0, chunks+1)
	remaining := distance
	for i := 0; remaining > 0; i++ {
		t := 0.5
		if chunks > 1 {
			t = math.Min(float64(i)/float64(chunks-1), 1)
		}
		size := int((float64(lo) + easeInOutCubic(t)*float64(hi-lo)) * h.between(0.7, 1.3))
		if size < 1 {
			size = 1
		}
		if size > remaining {
			size = remaining
		}

		delay := 50 + float64(size)*0.5
		if i == 0 || remaining == size {
			delay *= h.between(1.5, 2.0)
		} else {
			delay *= h.between(0.7, 1.0)
		}
		steps = append(steps, ScrollStep{
			Delta: sign * size,
			Delay: time.Duration((delay + h.float64()*20) * float64(time.Millisecond)),
		})
		remaining -= size
	}
	return steps
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
