package pose

import "fmt"

// Pose is one target orientation of the capture rig, in integer degrees.
// Two poses are the same pose iff yaw and tilt match.
type Pose struct {
	Yaw  int
	Tilt int
}

func (p Pose) String() string {
	return fmt.Sprintf("tilt=%d yaw=%d", p.Tilt, p.Yaw)
}

// Build produces the capture traversal order: the Cartesian product of
// tilts and yaws, tilt-major (all yaws for one tilt before the next tilt).
// The same inputs always yield the identical sequence; the stitcher relies
// on replaying it to reconstruct the key space.
func Build(tilts, yaws []int) ([]Pose, error) {
	if len(tilts) == 0 || len(yaws) == 0 {
		return nil, fmt.Errorf("pose grid needs at least one tilt and one yaw (got %d tilts, %d yaws)", len(tilts), len(yaws))
	}
	if d := firstDuplicate(tilts); d != nil {
		return nil, fmt.Errorf("duplicate tilt %d in grid", *d)
	}
	if d := firstDuplicate(yaws); d != nil {
		return nil, fmt.Errorf("duplicate yaw %d in grid", *d)
	}

	grid := make([]Pose, 0, len(tilts)*len(yaws))
	for _, t := range tilts {
		for _, y := range yaws {
			grid = append(grid, Pose{Yaw: y, Tilt: t})
		}
	}
	return grid, nil
}

func firstDuplicate(vals []int) *int {
	seen := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			return &v
		}
		seen[v] = struct{}{}
	}
	return nil
}
