// Package main is bzclust's command-line entry point: it reads the fixed
// npy input bundle (energies, overlaps, grid shape), runs the
// classification engine, and writes the output bundle plus a human-readable
// report.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/config"
	"github.com/bzclust/bzclust/engine"
	"github.com/bzclust/bzclust/npy"
	"github.com/bzclust/bzclust/report"
	"github.com/bzclust/bzclust/signalcorrect"
)

func main() {
	os.Exit(run())
}

func run() int {
	inDir := flag.String("in", "", "directory containing energies.npy and overlaps.npy")
	outDir := flag.String("out", ".", "directory to write bandsfinal.npy, signalfinal.npy, and final.report")
	configPath := flag.String("config", "", "path to a TOML config file (default: looked up via config.GetConfigPath)")
	nx := flag.Int("nx", 0, "grid extent in x (required)")
	ny := flag.Int("ny", 0, "grid extent in y (required)")
	minBand := flag.Int("min-band", 0, "first band of the active window")
	maxBand := flag.Int("max-band", -1, "last band of the active window (default: nbnd-1)")
	signalingDir := flag.String("signaling-dir", "", "if set, also run the standalone post-hoc signaling pass and write bn_<b>_signaling.npy here")
	flag.Parse()

	if *inDir == "" || *nx <= 0 || *ny <= 0 {
		fmt.Println("Usage: bzclust -in <dir> -nx <N> -ny <N> [-out <dir>] [-config <file>] [-min-band N] [-max-band N]")
		flag.PrintDefaults()
		return 2
	}

	logger := log.New(os.Stderr, "bzclust: ", log.LstdFlags)

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Printf("config load failed, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	if *signalingDir != "" {
		cfg.SignalingDir = *signalingDir
	}

	energiesArr, err := npy.ReadFile(filepath.Join(*inDir, "energies.npy"))
	if err != nil {
		logger.Printf("reading energies.npy: %v", err)
		return 1
	}
	overlapsArr, err := npy.ReadFile(filepath.Join(*inDir, "overlaps.npy"))
	if err != nil {
		logger.Printf("reading overlaps.npy: %v", err)
		return 1
	}

	in, err := buildInput(*nx, *ny, *minBand, *maxBand, energiesArr, overlapsArr)
	if err != nil {
		logger.Printf("invalid input bundle: %v", err)
		return 1
	}

	res, err := engine.Run(logger, cfg, in)
	if err != nil {
		logger.Printf("run failed: %v", err)
		return 1
	}

	if err := writeOutputs(*outDir, in.Dims, res); err != nil {
		logger.Printf("writing outputs: %v", err)
		return 1
	}

	if cfg.SignalingDir != "" {
		if err := os.MkdirAll(cfg.SignalingDir, 0o755); err != nil {
			logger.Printf("creating signaling dir: %v", err)
			return 1
		}
		bandEnergy := reshapeBandEnergy(in.Dims, energiesArr)
		if err := signalcorrect.Standalone(cfg.SignalingDir, in.Dims, bandEnergy, res.BandsFinal); err != nil {
			logger.Printf("standalone signaling: %v", err)
			return 1
		}
	}

	logger.Printf("done")
	return 0
}

func buildInput(nx, ny, minBand, maxBand int, energiesArr, overlapsArr *npy.Array) (engine.Input, error) {
	if len(energiesArr.Shape) != 2 {
		return engine.Input{}, fmt.Errorf("energies.npy must be 2D [Nk, Nbnd], got shape %v", energiesArr.Shape)
	}
	nk := energiesArr.Shape[0]
	nbnd := energiesArr.Shape[1]
	if maxBand < 0 {
		maxBand = nbnd - 1
	}
	d := bandtypes.Dims{Nx: nx, Ny: ny, Nk: nk, Nbnd: nbnd, MinBand: minBand, MaxBand: maxBand}
	if err := d.Validate(); err != nil {
		return engine.Input{}, err
	}

	energies := make([][]float64, nk)
	for kid := 0; kid < nk; kid++ {
		energies[kid] = energiesArr.Float64Data[kid*nbnd : (kid+1)*nbnd]
	}

	if len(overlapsArr.Shape) != 4 {
		return engine.Input{}, fmt.Errorf("overlaps.npy must be 4D [Nk, 4, Nbnd, Nbnd], got shape %v", overlapsArr.Shape)
	}
	overlaps := reshapeOverlaps(d, overlapsArr)

	return engine.Input{Dims: d, Energies: energies, Overlaps: overlaps}, nil
}

func reshapeOverlaps(d bandtypes.Dims, arr *npy.Array) bandgraph.Overlaps {
	nbnd := d.Nbnd
	out := make(bandgraph.Overlaps, d.Nk)
	stride := bandtypes.N_NEIGS * nbnd * nbnd
	for kid := 0; kid < d.Nk; kid++ {
		out[kid] = make([][][]float64, bandtypes.N_NEIGS)
		base := kid * stride
		for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
			out[kid][dir] = make([][]float64, nbnd)
			dirBase := base + dir*nbnd*nbnd
			for b1 := 0; b1 < nbnd; b1++ {
				row := arr.Float64Data[dirBase+b1*nbnd : dirBase+(b1+1)*nbnd]
				out[kid][dir][b1] = row
			}
		}
	}
	return out
}

func reshapeBandEnergy(d bandtypes.Dims, energiesArr *npy.Array) [][][]float64 {
	nbnd := d.Nbnd
	width := d.Width()
	be := make([][][]float64, width)
	for bo := 0; bo < width; bo++ {
		b := d.MinBand + bo
		be[bo] = make([][]float64, d.Ny)
		for j := 0; j < d.Ny; j++ {
			be[bo][j] = make([]float64, d.Nx)
			for i := 0; i < d.Nx; i++ {
				kid := d.KID(i, j)
				be[bo][j][i] = energiesArr.Float64Data[kid*nbnd+b]
			}
		}
	}
	return be
}

func writeOutputs(outDir string, d bandtypes.Dims, res *engine.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	width := d.Width()

	bandsFlat := make([]int32, d.Nk*width)
	signalFlat := make([]int8, d.Nk*width)
	correctedFlat := make([]int8, d.Nk*width)
	for kid := 0; kid < d.Nk; kid++ {
		for p := 0; p < width; p++ {
			bandsFlat[kid*width+p] = res.BandsFinal[kid][p]
			signalFlat[kid*width+p] = res.Signal[kid][p]
			correctedFlat[kid*width+p] = res.CorrectedSignal[kid][p]
		}
	}

	if err := npy.WriteFile(filepath.Join(outDir, "bandsfinal.npy"), &npy.Array{
		DType: npy.Int32, Shape: []int{d.Nk, width}, Int32Data: bandsFlat,
	}); err != nil {
		return err
	}
	if err := npy.WriteFile(filepath.Join(outDir, "signalfinal.npy"), &npy.Array{
		DType: npy.Int8, Shape: []int{d.Nk, width}, Int8Data: signalFlat,
	}); err != nil {
		return err
	}
	if err := npy.WriteFile(filepath.Join(outDir, "correct_signalfinal.npy"), &npy.Array{
		DType: npy.Int8, Shape: []int{d.Nk, width}, Int8Data: correctedFlat,
	}); err != nil {
		return err
	}

	degFlat := make([]int32, 0, len(res.Degenerate)*2)
	for _, pair := range res.Degenerate {
		degFlat = append(degFlat, int32(pair[0]), int32(pair[1]))
	}
	if err := npy.WriteFile(filepath.Join(outDir, "degeneratefinal.npy"), &npy.Array{
		DType: npy.Int32, Shape: []int{len(res.Degenerate), 2}, Int32Data: degFlat,
	}); err != nil {
		return err
	}

	if err := npy.WriteFile(filepath.Join(outDir, "final_score.npy"), &npy.Array{
		DType: npy.Float64, Shape: []int{width}, Float64Data: res.FinalScore,
	}); err != nil {
		return err
	}

	reportFile, err := os.Create(filepath.Join(outDir, "final.report"))
	if err != nil {
		return err
	}
	defer reportFile.Close()
	return report.Render(reportFile, d, res)
}
