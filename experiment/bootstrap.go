package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"lininvbox"
	"lininvbox/logger"
)

// Session configures one bootstrap run. Trials are independent: each one
// resamples its own copies of G and d and solves with its own Inversion, so
// they run concurrently without shared state.
type Session struct {
	ID       uuid.UUID
	Trials   int
	Fraction float64 // share of observation rows resampled per trial
	Workers  int     // concurrent trials; defaults to the CPU count
	Seed     int64   // base seed; trial i uses Seed+i
}

// NewSession returns a session with a fresh identifier, a time-based seed
// and one worker per CPU.
func NewSession(trials int, fraction float64) Session {
	return Session{
		ID:       uuid.New(),
		Trials:   trials,
		Fraction: fraction,
		Workers:  runtime.NumCPU(),
		Seed:     time.Now().UnixNano(),
	}
}

// Bootstrap runs the session's trials in an errgroup worker pool and returns
// the recovered models as an npars×trials matrix, one column per trial.
// Constraints and regularisation may be nil and apply to every trial.
func Bootstrap(
	ctx context.Context,
	s Session,
	g *lininvbox.DesignMatrix,
	d *lininvbox.DataArray,
	constraints *lininvbox.Constraints,
	regularisation *lininvbox.Regularisation,
) (*mat.Dense, error) {
	if g == nil || d == nil {
		return nil, fmt.Errorf("%w: bootstrap needs a design matrix and a data array", lininvbox.ErrInvalidArgument)
	}
	if s.Trials <= 0 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", lininvbox.ErrInvalidArgument, s.Trials)
	}
	if s.Fraction <= 0 || s.Fraction > 1 {
		return nil, fmt.Errorf("%w: fraction must be in (0, 1], got %g", lininvbox.ErrInvalidArgument, s.Fraction)
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	_, npars := g.Dims()
	out := mat.NewDense(npars, s.Trials, nil)

	logger.Info.Printf("session %s: running %d bootstrap trials on %d workers", s.ID, s.Trials, workers)
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for trial := 0; trial < s.Trials; trial++ {
		trial := trial
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(s.Seed + int64(trial)))
			model, err := bootstrapTrial(rng, s.Fraction, g, d, constraints, regularisation)
			if err != nil {
				return fmt.Errorf("trial %d: %w", trial, err)
			}
			// trials write disjoint columns
			out.SetCol(trial, model)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// bootstrapTrial deep-copies G and d, overwrites a random half of a
// fraction-sized row sample with the other half, and solves the resampled
// system with its own Inversion.
func bootstrapTrial(
	rng *rand.Rand,
	fraction float64,
	g *lininvbox.DesignMatrix,
	d *lininvbox.DataArray,
	constraints *lininvbox.Constraints,
	regularisation *lininvbox.Regularisation,
) ([]float64, error) {
	nobs, _ := g.Dims()

	// an even sample count splits cleanly into keep/replace halves
	k := int(math.Ceil(math.Round(float64(nobs)*fraction)/2) * 2)
	if k > nobs {
		k = nobs - nobs%2
	}
	sample := rng.Perm(nobs)[:k]
	keep, replace := sample[:k/2], sample[k/2:]

	gd := g.Clone().Dense()
	dvals := d.Clone().Values()
	for i := range replace {
		for c := 0; c < gd.RawMatrix().Cols; c++ {
			gd.Set(replace[i], c, gd.At(keep[i], c))
		}
		dvals[replace[i]] = dvals[keep[i]]
	}

	rg, err := lininvbox.NewDesignMatrix(g.Equation(), lininvbox.NewCooFromDense(gd))
	if err != nil {
		return nil, err
	}
	rd, err := lininvbox.NewDataArray(dvals)
	if err != nil {
		return nil, err
	}

	inv := lininvbox.NewInversion("bootstrap")
	m, err := inv.Solve(rg, rd, constraints, regularisation)
	if err != nil {
		return nil, err
	}
	return m.Values(), nil
}

// Summary reduces a bootstrap ensemble to the per-parameter mean and
// standard deviation across trials.
func Summary(models *mat.Dense) (means, stddevs []float64) {
	npars, trials := models.Dims()
	means = make([]float64, npars)
	stddevs = make([]float64, npars)
	row := make([]float64, trials)
	for i := 0; i < npars; i++ {
		mat.Row(row, i, models)
		means[i], stddevs[i] = stat.MeanStdDev(row, nil)
	}
	return means, stddevs
}
