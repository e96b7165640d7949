package timeline

// Simplify removes every vertex whose neighbours on both sides share its x
// coordinate, collapsing vertical runs to their two ends. The first and last
// vertex are always kept. Polygons with fewer than three vertices are
// returned unchanged.
func Simplify(pts []Point) []Point {
	if len(pts) < 3 {
		return pts
	}
	out := make([]Point, 0, len(pts))
	out = append(out, pts[0])
	for i := 1; i < len(pts)-1; i++ {
		if pts[i-1].X == pts[i].X && pts[i].X == pts[i+1].X {
			continue
		}
		out = append(out, pts[i])
	}
	return append(out, pts[len(pts)-1])
}
