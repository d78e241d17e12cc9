package tracto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tractometry/tractoscore/internal/monitoring"
)

// ErrMissingAttributes signals a bundle streamline file with no entry in the
// externally supplied attributes mapping. This is a fatal configuration
// error: the run aborts before any classification happens.
var ErrMissingAttributes = errors.New("missing bundle attributes")

// BundleAttributes is the externally supplied per-bundle configuration,
// keyed by bundle filename.
type BundleAttributes struct {
	ClusterThreshold float64 `json:"cluster_threshold"`
}

// GroundTruthLayout names the on-disk pieces of one ground-truth dataset.
type GroundTruthLayout struct {
	BundlesDir     string // reference streamline files, one per bundle
	BundleMasksDir string // per-bundle binary masks
	ROIsDir        string // ROI masks, sorted order = identity
	RefAnatPath    string // reference anatomical volume defining the grid
}

// DataLayout derives the conventional layout under a base directory:
// bundles/, masks/bundles/, masks/rois/ and masks/wm.nii.gz.
func DataLayout(baseDir string) GroundTruthLayout {
	masksDir := filepath.Join(baseDir, "masks")
	return GroundTruthLayout{
		BundlesDir:     filepath.Join(baseDir, "bundles"),
		BundleMasksDir: filepath.Join(masksDir, "bundles"),
		ROIsDir:        filepath.Join(masksDir, "rois"),
		RefAnatPath:    filepath.Join(masksDir, "wm.nii.gz"),
	}
}

// GroundTruth is the fully loaded, read-only scoring reference: the ordered
// reference bundles, the ordered ROIs and the voxel grid dimensions shared
// by every mask.
type GroundTruth struct {
	Bundles []*ReferenceBundle
	ROIs    []*ROI
	Dim     [3]int
}

// LoadGroundTruth builds the reference-bundle records and ROI list for one
// scoring run. Bundle files are visited in sorted lexicographic order; each
// needs an entry in attribs or the load fails with ErrMissingAttributes.
// Every mask must match the reference anatomical grid dimensions.
func LoadGroundTruth(layout GroundTruthLayout, attribs map[string]BundleAttributes,
	params ScoringParams, tracts TractogramReader, masks MaskReader) (*GroundTruth, error) {

	refAnat, err := masks.ReadMask(layout.RefAnatPath)
	if err != nil {
		return nil, fmt.Errorf("load reference anatomy %s: %w", layout.RefAnatPath, err)
	}
	gt := &GroundTruth{Dim: refAnat.Dim}

	bundleFiles, err := sortedFiles(layout.BundlesDir)
	if err != nil {
		return nil, fmt.Errorf("list bundle files: %w", err)
	}

	for _, bundleFile := range bundleFiles {
		name := stripTractExt(bundleFile)

		bundleAttribs, ok := attribs[bundleFile]
		if !ok {
			return nil, fmt.Errorf("%w for %s", ErrMissingAttributes, bundleFile)
		}

		tg, err := tracts.ReadTractogram(filepath.Join(layout.BundlesDir, bundleFile), TractAttributes{})
		if err != nil {
			return nil, fmt.Errorf("load bundle %s: %w", bundleFile, err)
		}

		resampled := make([]Streamline, tg.Len())
		for i, s := range tg.Streamlines {
			resampled[i] = Resample(s, params.NBPointsResample)
		}
		clusterMap := ClusterStreamlines(resampled, params.ClusterThreshold)

		mask, err := loadBundleMask(masks, layout.BundleMasksDir, name)
		if err != nil {
			return nil, err
		}
		if err := mask.CheckDims(gt.Dim); err != nil {
			return nil, fmt.Errorf("bundle mask %s: %w", name, err)
		}

		monitoring.Logf("loaded bundle %s: %d streamlines, %d clusters, threshold %g",
			name, tg.Len(), len(clusterMap.Clusters), bundleAttribs.ClusterThreshold)

		gt.Bundles = append(gt.Bundles, &ReferenceBundle{
			Name:      name,
			Threshold: bundleAttribs.ClusterThreshold,
			Clusters:  clusterMap,
			Mask:      mask,
		})
	}

	roiFiles, err := sortedFiles(layout.ROIsDir)
	if err != nil {
		return nil, fmt.Errorf("list ROI files: %w", err)
	}
	for _, roiFile := range roiFiles {
		mask, err := masks.ReadMask(filepath.Join(layout.ROIsDir, roiFile))
		if err != nil {
			return nil, fmt.Errorf("load ROI %s: %w", roiFile, err)
		}
		if err := mask.CheckDims(gt.Dim); err != nil {
			return nil, fmt.Errorf("ROI mask %s: %w", roiFile, err)
		}
		gt.ROIs = append(gt.ROIs, &ROI{Name: stripTractExt(roiFile), Mask: mask})
	}

	return gt, nil
}

// loadBundleMask resolves the bundle mask path, trying the plain and the
// gzipped volume extension.
func loadBundleMask(masks MaskReader, dir, name string) (*Mask, error) {
	var firstErr error
	for _, ext := range []string{".nii.gz", ".nii"} {
		mask, err := masks.ReadMask(filepath.Join(dir, name+ext))
		if err == nil {
			return mask, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("load bundle mask %s: %w", name, firstErr)
}

// sortedFiles lists the regular files of a directory in lexicographic order.
func sortedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// stripTractExt removes the file extension, treating the common compound
// volume extension .nii.gz as one unit.
func stripTractExt(filename string) string {
	name := filepath.Base(filename)
	if strings.HasSuffix(name, ".nii.gz") {
		return strings.TrimSuffix(name, ".nii.gz")
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
