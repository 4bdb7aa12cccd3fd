package pgraph

// Kind is the topological shape of a vertex. The incidence list of a vertex
// is laid out per kind:
//
//	End          [edge]
//	Line, Corner [a, b]
//	T            [line a, line b, stem]
//	Y            [branch a, branch b, stem]
//	StarOfThree  [a, b, c]
//	X            [pair0 a, pair0 b, pair1 a, pair1 b]
//	StarOfFour   [a, b, c, d]
//	StarOfMany   [a, b, ...] (three or more)
type Kind uint8

const (
	KindDummy Kind = iota
	KindEnd
	KindLine
	KindCorner
	KindT
	KindY
	KindStarOfThree
	KindX
	KindStarOfFour
	KindStarOfMany
)

var kindNames = [...]string{
	KindDummy:       "dummy",
	KindEnd:         "end",
	KindLine:        "line",
	KindCorner:      "corner",
	KindT:           "t",
	KindY:           "y",
	KindStarOfThree: "star3",
	KindX:           "x",
	KindStarOfFour:  "star4",
	KindStarOfMany:  "star",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Degree returns the fixed degree of the kind, or -1 for StarOfMany whose
// degree is its incidence count.
func (k Kind) Degree() int {
	switch k {
	case KindDummy:
		return 0
	case KindEnd:
		return 1
	case KindLine, KindCorner:
		return 2
	case KindT, KindY, KindStarOfThree:
		return 3
	case KindX, KindStarOfFour:
		return 4
	}
	return -1
}

// regular reports whether the kind is End or Line.
func (k Kind) regular() bool { return k == KindEnd || k == KindLine }

// cornerAngle reports whether an angle in degrees is sharp enough to be a
// corner.
func cornerAngle(deg float64) bool { return deg < 100 }

// rectAngle reports whether an angle in degrees is close to a right angle.
func rectAngle(deg float64) bool { return cornerAngle(deg) && cornerAngle(180-deg) }

// degreeMatches reports whether the incidence count fits the vertex kind.
func degreeMatches(v *Vertex) bool {
	if d := v.kind.Degree(); d >= 0 {
		return d == len(v.inc)
	}
	return len(v.inc) >= 3
}
