package stealth

import (
	"math"
	"time"
)

// Point is a viewport coordinate
type Point struct {
	X, Y float64
}

func (p Point) distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// MousePath returns the points of a cubic Bézier path from start to end,
// sometimes overshooting and correcting. The last point is always end.
func (h *Humanizer) MousePath(start, end Point) []Point {
	dist := start.distance(end)
	if dist < 1 {
		return []Point{end}
	}

	target := end
	if h.float64() < h.cfg.OvershootChance {
		over := dist * h.between(0.1, 0.3)
		angle := math.Atan2(end.Y-start.Y, end.X-start.X)
		target = Point{X: end.X + over*math.Cos(angle), Y: end.Y + over*math.Sin(angle)}
	}

	speed := h.between(h.cfg.MouseSpeedMin, h.cfg.MouseSpeedMax)
	steps := clamp(int(dist/(10*speed)), 10, 100)
	points := bezier(h.controlPoints(start, target), steps)

	if target != end {
		steps := clamp(int(target.distance(end)*0.5), 5, 30)
		points = append(points, bezier(h.controlPoints(target, end), steps)[1:]...)
	}
	return points
}

// StepDelay is the pause between two mouse move events
func (h *Humanizer) StepDelay() time.Duration {
	return time.Duration(5+h.intn(11)) * time.Millisecond
}

// controlPoints bends the segment sideways by 20-50% of its length
func (h *Humanizer) controlPoints(start, end Point) [4]Point {
	dx, dy := end.X-start.X, end.Y-start.Y
	px, py := -dy, dx
	if l := math.Hypot(px, py); l > 0 {
		scale := h.between(0.2, 0.5) * math.Hypot(dx, dy)
		px, py = px/l*scale, py/l*scale
	}
	a, b := h.between(0.3, 0.7), h.between(0.3, 0.7)
	return [4]Point{
		start,
		{X: start.X + px*a, Y: start.Y + py*a},
		{X: end.X - px*b, Y: end.Y - py*b},
		end,
	}
}

func bezier(cp [4]Point, steps int) []Point {
	points := make([]Point, steps)
	for i := range points {
		t := float64(i) / float64(steps-1)
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		points[i] = Point{
			X: a*cp[0].X + b*cp[1].X + c*cp[2].X + d*cp[3].X,
			Y: a*cp[0].Y + b*cp[1].Y + c*cp[2].Y + d*cp[3].Y,
		}
	}
	return points
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
