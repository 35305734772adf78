package signalcorrect

import "github.com/bzclust/bzclust/bandtypes"

// dilate grows a flat (row-major over kid) boolean mask by standard binary
// dilation with a 3x3 all-ones structuring element and reflect padding: a
// cell becomes true if any cell in its 3x3 neighborhood (including itself)
// is already true. No example in the retrieved corpus provides 2D
// convolution/correlation, so this is a small hand-written helper rather
// than a wired third-party dependency.
func dilate(d bandtypes.Dims, mask []bool) []bool {
	grid := make([][]bool, d.Ny)
	for j := range grid {
		grid[j] = make([]bool, d.Nx)
		for i := range grid[j] {
			grid[j][i] = mask[d.KID(i, j)]
		}
	}

	out := make([][]bool, d.Ny)
	for j := range out {
		out[j] = make([]bool, d.Nx)
	}
	for j := 0; j < d.Ny; j++ {
		for i := 0; i < d.Nx; i++ {
			count := 0
			for dj := -1; dj <= 1; dj++ {
				for di := -1; di <= 1; di++ {
					jj := reflect(j+dj, d.Ny)
					ii := reflect(i+di, d.Nx)
					if grid[jj][ii] {
						count++
					}
				}
			}
			out[j][i] = count >= 1
		}
	}

	flat := make([]bool, d.Nk)
	for j := 0; j < d.Ny; j++ {
		for i := 0; i < d.Nx; i++ {
			flat[d.KID(i, j)] = out[j][i]
		}
	}
	return flat
}

func reflect(idx, n int) int {
	if idx < 0 {
		return -idx - 1
	}
	if idx >= n {
		return 2*n - idx - 1
	}
	return idx
}
