package component

import "github.com/bzclust/bzclust/bandtypes"

// Boundary returns the k-ids on the perimeter of mask: a masked point is on
// the boundary iff it has at least one unmasked cell among its 8 neighbors
// (reflect padding at grid edges, so the grid edge itself does not count).
//
// The test correlates mask with a 3x3 all-ones kernel; a masked point whose
// neighborhood count is below 9 is a boundary point.
func Boundary(d bandtypes.Dims, mask [][]bool) []int {
	counts := correlate(mask, neighborhood)

	var out []int
	for j := 0; j < d.Ny; j++ {
		for i := 0; i < d.Nx; i++ {
			if !mask[j][i] {
				continue
			}
			if counts[j][i] < 9 {
				out = append(out, d.KID(i, j))
			}
		}
	}
	return out
}

var neighborhood = [3][3]int{
	{1, 1, 1},
	{1, 1, 1},
	{1, 1, 1},
}

// correlate applies a 3x3 integer kernel to a boolean grid with reflect
// padding at the edges (mirrors scipy.ndimage.correlate's 'reflect' mode).
func correlate(mask [][]bool, kernel [3][3]int) [][]int {
	ny := len(mask)
	nx := len(mask[0])
	out := make([][]int, ny)
	for j := range out {
		out[j] = make([]int, nx)
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			sum := 0
			for kj := -1; kj <= 1; kj++ {
				for ki := -1; ki <= 1; ki++ {
					jj := reflect(j+kj, ny)
					ii := reflect(i+ki, nx)
					if mask[jj][ii] {
						sum += kernel[kj+1][ki+1]
					}
				}
			}
			out[j][i] = sum
		}
	}
	return out
}

// reflect maps an out-of-bounds index back into [0, n) by mirroring at the
// edge, e.g. reflect(-1, n) == 0, reflect(n, n) == n-1.
func reflect(idx, n int) int {
	if idx < 0 {
		return -idx - 1
	}
	if idx >= n {
		return 2*n - idx - 1
	}
	return idx
}
