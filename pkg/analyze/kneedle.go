package analyze

import (
	"sort"
)

// Point is one sweep level on the offered-vs-achieved throughput curve:
// X is the offered rate, Y what the target actually delivered.
type Point struct {
	X float64
	Y float64
}

// FindKnee implements the Kneedle algorithm to locate the point of
// maximum curvature. An open-loop sweep traces a saturation curve:
// achieved throughput tracks offered load linearly, then flattens once
// the target saturates; the knee is where that transition happens.
func FindKnee(points []Point) Point {
	if len(points) < 3 {
		if len(points) > 0 {
			return points[len(points)-1]
		}
		return Point{}
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	// Normalize both axes to [0, 1] so the reference diagonal is y = x.
	minX, maxX := sorted[0].X, sorted[len(sorted)-1].X
	minY, maxY := sorted[0].Y, sorted[0].Y
	for _, p := range sorted {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	// A flat or degenerate curve has no knee to speak of.
	if maxX == minX || maxY == minY {
		return sorted[len(sorted)-1]
	}

	// The knee is the point furthest above the diagonal connecting the
	// curve's endpoints in normalized space.
	maxDist := -1.0
	var knee Point
	for _, p := range sorted {
		xNorm := (p.X - minX) / (maxX - minX)
		yNorm := (p.Y - minY) / (maxY - minY)
		dist := yNorm - xNorm
		if dist > maxDist {
			maxDist = dist
			knee = p
		}
	}

	return knee
}
