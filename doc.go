// Package bzclust is a band classification engine for condensed-matter
// electronic-structure post-processing.
//
// Given a Brillouin-zone k-grid sampled on a regular Nx×Ny mesh, with
// per-k-point eigenvalues and neighbor-overlap magnitudes between
// wavefunctions, bzclust assigns each (k-point, original-band) pair to a
// physical band number so that each physical band forms a smooth,
// continuous surface across the grid.
//
// Pipeline:
//
//	vectorize/      — node construction, degeneracy detection
//	bandgraph/      — similarity graph over (k,band) nodes
//	component/      — connected-component extraction & classification
//	linalg/         — least-squares polynomial fit used for energy continuity
//	merge/          — iterative cluster/sample merging
//	output/         — physical-band assignment & quality signaling
//	signalcorrect/  — directional energy-fit signal correction
//	solve/          — tolerance-relaxing outer loop with memoized best result
//	engine/         — orchestrates the pipeline and owns concurrency
//	npy/            — NumPy .npy array codec (the fixed I/O contract)
//	config/         — run parameters, loaded from TOML + flags
//	report/         — human-readable per-band signaling table
//
// See cmd/bzclust for the command-line entry point.
//
//	go get github.com/bzclust/bzclust
package bzclust
