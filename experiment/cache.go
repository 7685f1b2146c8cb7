package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"lininvbox"
	"lininvbox/logger"
)

const (
	alphasFile = "alphas.bin"
	mseFile    = "mse.bin"
	roughFile  = "rough.bin"
	bestFile   = "besti.bin"
	modelsFile = "models.bin"
)

// SweepWithCache is RegularisationSweep with a disk cache under root. A
// cached result is reused when the stored α grid matches the requested one
// and overwrite is false; a changed grid discards the cache and recomputes.
// The grid is the only fingerprint, mirroring how the batch experiments were
// originally run: the caller owns invalidation when G or d change.
func SweepWithCache(
	root string,
	overwrite bool,
	inv *lininvbox.Inversion,
	g *lininvbox.DesignMatrix,
	d *lininvbox.DataArray,
	term string,
	alphas []float64,
	constraints *lininvbox.Constraints,
) (*SweepResult, error) {
	if !overwrite {
		if cached, err := loadSweep(root); err == nil {
			if floatsEqual(cached.Alphas, alphas) {
				logger.Info.Printf("alphas unchanged, loaded sweep from %s", root)
				return cached, nil
			}
			logger.Info.Println("new alphas detected, discarding cached sweep")
			if err := os.RemoveAll(root); err != nil {
				return nil, err
			}
		}
	}

	result, err := RegularisationSweep(inv, g, d, term, alphas, constraints)
	if err != nil {
		return nil, err
	}
	if err := saveSweep(root, result); err != nil {
		return nil, err
	}
	return result, nil
}

// BootstrapWithCache is Bootstrap with a disk cache under root: an existing
// model dump is reloaded unless overwrite is set.
func BootstrapWithCache(
	ctx context.Context,
	root string,
	overwrite bool,
	s Session,
	g *lininvbox.DesignMatrix,
	d *lininvbox.DataArray,
	constraints *lininvbox.Constraints,
	regularisation *lininvbox.Regularisation,
) (*mat.Dense, error) {
	if !overwrite {
		if models, err := loadDense(filepath.Join(root, modelsFile)); err == nil {
			logger.Info.Printf("loaded bootstrap models from %s", root)
			return models, nil
		}
	}
	models, err := Bootstrap(ctx, s, g, d, constraints, regularisation)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if err := saveDense(filepath.Join(root, modelsFile), models); err != nil {
		return nil, err
	}
	return models, nil
}

func saveSweep(root string, r *SweepResult) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	for _, dump := range []struct {
		file string
		vals []float64
	}{
		{alphasFile, r.Alphas},
		{mseFile, r.MSE},
		{roughFile, r.Roughness},
		{bestFile, []float64{float64(r.BestIndex)}},
	} {
		if err := saveVec(filepath.Join(root, dump.file), dump.vals); err != nil {
			return err
		}
	}
	return nil
}

func loadSweep(root string) (*SweepResult, error) {
	alphas, err := loadVec(filepath.Join(root, alphasFile))
	if err != nil {
		return nil, err
	}
	mse, err := loadVec(filepath.Join(root, mseFile))
	if err != nil {
		return nil, err
	}
	rough, err := loadVec(filepath.Join(root, roughFile))
	if err != nil {
		return nil, err
	}
	best, err := loadVec(filepath.Join(root, bestFile))
	if err != nil {
		return nil, err
	}
	if len(best) != 1 {
		return nil, fmt.Errorf("%w: corrupt best-index dump in %s", lininvbox.ErrInvalidArgument, root)
	}
	return &SweepResult{Alphas: alphas, MSE: mse, Roughness: rough, BestIndex: int(best[0])}, nil
}

func saveVec(path string, vals []float64) error {
	data, err := mat.NewVecDense(len(vals), append([]float64(nil), vals...)).MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadVec(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v mat.VecDense
	if err := v.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return append([]float64(nil), v.RawVector().Data...), nil
}

func saveDense(path string, d *mat.Dense) error {
	data, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadDense(path string) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d mat.Dense
	if err := d.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &d, nil
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
