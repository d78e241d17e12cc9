package tracto

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Default scoring parameters. These match the values the reference scoring
// datasets were calibrated against.
const (
	// DefaultNBPointsResample is the fixed point count every streamline is
	// resampled to before cluster-distance comparisons.
	DefaultNBPointsResample = 12
	// DefaultLengthThreshold is the minimum streamline length, in voxel
	// units, for a non-valid streamline to remain an invalid-connection
	// candidate.
	DefaultLengthThreshold = 35.0
	// DefaultClusterThreshold is the base merge threshold used when
	// pre-clustering reference bundles and grouping candidates.
	DefaultClusterThreshold = 20.0
	// DefaultMaxShellRadius bounds the outward Chebyshev-shell search when
	// matching a streamline endpoint to an ROI.
	DefaultMaxShellRadius = 4
)

// ScoringParams carries every tunable constant of the scoring pipeline so
// the core stays testable with alternate thresholds.
type ScoringParams struct {
	NBPointsResample int
	LengthThreshold  float64
	ClusterThreshold float64
	MaxShellRadius   int

	// Workers caps the goroutines used for per-streamline extraction.
	Workers int
}

// DefaultScoringParams returns the documented default parameter set.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		NBPointsResample: DefaultNBPointsResample,
		LengthThreshold:  DefaultLengthThreshold,
		ClusterThreshold: DefaultClusterThreshold,
		MaxShellRadius:   DefaultMaxShellRadius,
		Workers:          runtime.NumCPU(),
	}
}

// Validate checks the parameter set for values the pipeline cannot run with.
func (p ScoringParams) Validate() error {
	if p.NBPointsResample < 2 {
		return fmt.Errorf("nb_points_resample must be at least 2, got %d", p.NBPointsResample)
	}
	if p.LengthThreshold < 0 {
		return fmt.Errorf("length_threshold must be non-negative, got %g", p.LengthThreshold)
	}
	if p.ClusterThreshold <= 0 {
		return fmt.Errorf("cluster_threshold must be positive, got %g", p.ClusterThreshold)
	}
	if p.MaxShellRadius < 0 {
		return fmt.Errorf("max_shell_radius must be non-negative, got %d", p.MaxShellRadius)
	}
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	return nil
}

// paramsFile is the JSON override schema. Pointer fields distinguish
// "absent" from zero, so partial override files are safe.
type paramsFile struct {
	NBPointsResample *int     `json:"nb_points_resample,omitempty"`
	LengthThreshold  *float64 `json:"length_threshold,omitempty"`
	ClusterThreshold *float64 `json:"cluster_threshold,omitempty"`
	MaxShellRadius   *int     `json:"max_shell_radius,omitempty"`
	Workers          *int     `json:"workers,omitempty"`
}

// LoadScoringParams reads a JSON parameter file and merges it over the
// defaults. Omitted fields keep their default values.
func LoadScoringParams(path string) (ScoringParams, error) {
	params := DefaultScoringParams()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return params, fmt.Errorf("params file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return params, fmt.Errorf("failed to stat params file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return params, fmt.Errorf("params file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return params, fmt.Errorf("failed to read params file: %w", err)
	}

	var file paramsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return params, fmt.Errorf("failed to parse params JSON: %w", err)
	}

	if file.NBPointsResample != nil {
		params.NBPointsResample = *file.NBPointsResample
	}
	if file.LengthThreshold != nil {
		params.LengthThreshold = *file.LengthThreshold
	}
	if file.ClusterThreshold != nil {
		params.ClusterThreshold = *file.ClusterThreshold
	}
	if file.MaxShellRadius != nil {
		params.MaxShellRadius = *file.MaxShellRadius
	}
	if file.Workers != nil {
		params.Workers = *file.Workers
	}

	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("invalid scoring params: %w", err)
	}
	return params, nil
}
