package cvmat

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"gocv.io/x/gocv"
)

// Region is the largest connected patch of an eligibility mask.
type Region struct {
	Contour  []image.Point
	Hull     []image.Point
	Area     float64
	Bounds   image.Rectangle
	Centroid image.Point

	// Axis runs from the base of the region towards its centroid, along a
	// limb's length.
	Axis Vector

	// CrossSections are chords of the contour perpendicular to Axis: the
	// first through the centroid, the second a third of Axis towards the
	// base. Together they bound where an overlay sits on the limb.
	CrossSections [2][2]image.Point

	// Oriented is set when Axis and both CrossSections were found.
	Oriented bool
}

// Vector is a direction in pixel units.
type Vector struct {
	X, Y float64
}

func vec(p image.Point) Vector { return Vector{float64(p.X), float64(p.Y)} }

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }

func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }

func (v Vector) Scale(k float64) Vector { return Vector{v.X * k, v.Y * k} }

func (v Vector) Dot(o Vector) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vector) Cross(o Vector) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vector) Len() float64 { return math.Hypot(v.X, v.Y) }

// Perp returns v rotated a quarter turn.
func (v Vector) Perp() Vector { return Vector{-v.Y, v.X} }

func (v Vector) point() image.Point {
	return image.Pt(int(math.Round(v.X)), int(math.Round(v.Y)))
}

// Outline colors used by Annotate.
var (
	ContourColor      = color.RGBA{G: 255, A: 255}
	HullColor         = color.RGBA{R: 255, G: 255, A: 255}
	CentroidColor     = color.RGBA{R: 255, A: 255}
	CrossSectionColor = color.RGBA{R: 255, A: 255}
)

// LargestRegion finds the external contour of mask with the largest area.
// ok is false when the mask has no contour of positive area.
func LargestRegion(mask *pixbuf.Buffer) (r Region, ok bool, err error) {
	if err := mask.Validate(); err != nil {
		return Region{}, false, err
	}
	if mask.Layout != pixbuf.Gray {
		return Region{}, false, pixbuf.ShapeErr("region", mask.Shape(), "mask must be single channel")
	}

	m, err := ToMat(mask)
	if err != nil {
		return Region{}, false, err
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	maxIdx := -1
	maxArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > maxArea {
			maxArea = area
			maxIdx = i
		}
	}
	if maxIdx < 0 {
		return Region{}, false, nil
	}

	c := contours.At(maxIdx)
	pts := c.ToPoints()
	r = Region{
		Contour: pts,
		Hull:    convexHull(pts),
		Area:    maxArea,
		Bounds:  gocv.BoundingRect(c),
	}
	r.Centroid = polygonCentroid(pts, r.Bounds)
	r.orient()
	return r, true, nil
}

// orient estimates the limb axis and the two cross-sections.
func (r *Region) orient() {
	axis, ok := baseAxis(r.Hull, r.Centroid)
	if !ok {
		return
	}
	r.Axis = axis

	c := vec(r.Centroid)
	dir := axis.Perp()
	first, ok := chord(r.Contour, c, dir)
	if !ok {
		return
	}
	second, ok := chord(r.Contour, c.Sub(axis.Scale(1.0/3)), dir)
	if !ok {
		return
	}
	r.CrossSections = [2][2]image.Point{first, second}
	r.Oriented = true
}

// baseAxis picks the hull edge subtending the widest angle below a right
// angle at c. That edge is the base of the limb; the axis is the sum of the
// vectors from its endpoints to c.
func baseAxis(hull []image.Point, c image.Point) (Vector, bool) {
	if len(hull) < 3 {
		return Vector{}, false
	}
	cv := vec(c)
	best := -1.0
	var axis Vector
	for i := range hull {
		u := cv.Sub(vec(hull[i]))
		v := cv.Sub(vec(hull[(i+1)%len(hull)]))
		lu, lv := u.Len(), v.Len()
		if lu == 0 || lv == 0 {
			continue
		}
		cos := math.Max(-1, math.Min(1, u.Dot(v)/(lu*lv)))
		gamma := math.Acos(cos)
		if gamma >= math.Pi/2 || gamma < best {
			continue
		}
		best = gamma
		axis = u.Add(v)
	}
	if best < 0 || axis.Len() == 0 {
		return Vector{}, false
	}
	return axis, true
}

// chord returns the outermost points where the line through p along dir
// crosses the closed polygon poly.
func chord(poly []image.Point, p, dir Vector) ([2]image.Point, bool) {
	tmin, tmax := math.Inf(1), math.Inf(-1)
	for i := range poly {
		q := vec(poly[i])
		e := vec(poly[(i+1)%len(poly)]).Sub(q)
		den := dir.Cross(e)
		if math.Abs(den) < 1e-9 {
			continue
		}
		w := q.Sub(p)
		if s := w.Cross(dir) / den; s < 0 || s > 1 {
			continue
		}
		t := w.Cross(e) / den
		tmin = math.Min(tmin, t)
		tmax = math.Max(tmax, t)
	}
	if !(tmax > tmin) {
		return [2]image.Point{}, false
	}
	return [2]image.Point{
		p.Add(dir.Scale(tmin)).point(),
		p.Add(dir.Scale(tmax)).point(),
	}, true
}

// Annotate draws r into frame: the convex hull, the cross-sections, the
// contour and a dot at the centre of mass. frame must be a color buffer.
func Annotate(frame *pixbuf.Buffer, r Region) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if !frame.Layout.IsColor() {
		return pixbuf.ShapeErr("annotate", frame.Shape(), "frame must have color channels")
	}
	if len(r.Contour) == 0 {
		return nil
	}

	m, err := ToMat(frame)
	if err != nil {
		return err
	}
	defer m.Close()

	swap := frame.Layout == pixbuf.RGB || frame.Layout == pixbuf.RGBA
	outline := gocv.NewPointsVectorFromPoints([][]image.Point{r.Contour, r.Hull})
	defer outline.Close()

	if len(r.Hull) > 2 {
		gocv.DrawContours(&m, outline, 1, bgr(HullColor, swap), 1)
	}
	if r.Oriented {
		for _, cs := range r.CrossSections {
			gocv.Line(&m, cs[0], cs[1], bgr(CrossSectionColor, swap), 2)
		}
	}
	gocv.DrawContours(&m, outline, 0, bgr(ContourColor, swap), 2)
	gocv.Circle(&m, r.Centroid, 4, bgr(CentroidColor, swap), -1)

	copyBack(m, frame)
	return nil
}

// bgr maps a color for OpenCV drawing. OpenCV writes channels in BGR order,
// so RGB buffers need red and blue swapped.
func bgr(c color.RGBA, swap bool) color.RGBA {
	if swap {
		c.R, c.B = c.B, c.R
	}
	return c
}

// convexHull is Andrew's monotone chain. The result has no closing point.
func convexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		return append([]image.Point(nil), pts...)
	}
	p := append([]image.Point(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(p))
	for _, pt := range p {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		pt := p[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	return hull[:len(hull)-1]
}

// polygonCentroid returns the area centroid of a closed polygon, falling back
// to the centre of bounds for degenerate polygons.
func polygonCentroid(pts []image.Point, bounds image.Rectangle) image.Point {
	var a2, cx, cy int
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		c := p.X*q.Y - q.X*p.Y
		a2 += c
		cx += (p.X + q.X) * c
		cy += (p.Y + q.Y) * c
	}
	if a2 == 0 {
		return image.Pt((bounds.Min.X+bounds.Max.X)/2, (bounds.Min.Y+bounds.Max.Y)/2)
	}
	// cx/(3*a2) rounded to nearest.
	return image.Pt(roundDiv(cx, 3*a2), roundDiv(cy, 3*a2))
}

func roundDiv(n, d int) int {
	if d < 0 {
		n, d = -n, -d
	}
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}
