package fitter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/errors"
)

// hessianStep is the relative finite-difference step per parameter.
const hessianStep = 1e-4

// Covariance computes the asymptotic parameter covariance as the inverse of
// the numerically differentiated NLL Hessian at theta. Valid only for
// adequate sample size: fewer than fit.LargeSampleEvents total informative
// events, a non-invertible Hessian, or a negative variance estimate all
// return a NOT_APPLICABLE error so the caller falls back to the bootstrap.
func Covariance(informative []seu.Observation, theta weibull.Params) (*mat.SymDense, []float64, error) {
	total := 0
	for _, o := range informative {
		total += o.Count
	}
	if total < fit.LargeSampleEvents {
		return nil, nil, errors.NotApplicable(
			fmt.Sprintf("asymptotic covariance needs >=%d events, campaign has %d", fit.LargeSampleEvents, total))
	}

	nll := weibull.NLLVector(informative)
	x := theta.Vector()
	h := hessianMatrix(nll, x)

	cov, err := invertOrPseudo(h)
	if err != nil {
		return nil, nil, err
	}

	stderr := make([]float64, weibull.NumParams)
	for i := 0; i < weibull.NumParams; i++ {
		v := cov.At(i, i)
		if v < 0 {
			return nil, nil, errors.NotApplicable(
				fmt.Sprintf("non-positive-definite Hessian: negative variance for %s", weibull.ParamName(i)))
		}
		stderr[i] = math.Sqrt(v)
	}
	return cov, stderr, nil
}

// hessianMatrix builds the symmetrized central-difference Hessian.
func hessianMatrix(f func(weibull.Vector) float64, x weibull.Vector) *mat.Dense {
	n := weibull.NumParams
	steps := make([]float64, n)
	for i := 0; i < n; i++ {
		steps[i] = hessianStep * math.Max(math.Abs(x[i]), 1e-12)
	}

	shift := func(i int, di float64, j int, dj float64) float64 {
		p := x
		p[i] += di
		p[j] += dj
		return f(p)
	}

	h := mat.NewDense(n, n, nil)
	f0 := f(x)
	for i := 0; i < n; i++ {
		hi := steps[i]
		// Diagonal: (f(x+h) - 2f(x) + f(x-h)) / h^2
		d2 := (shift(i, hi, i, 0) - 2*f0 + shift(i, -hi, i, 0)) / (hi * hi)
		h.Set(i, i, d2)
		for j := i + 1; j < n; j++ {
			hj := steps[j]
			d2 := (shift(i, hi, j, hj) - shift(i, hi, j, -hj) -
				shift(i, -hi, j, hj) + shift(i, -hi, j, -hj)) / (4 * hi * hj)
			h.Set(i, j, d2)
			h.Set(j, i, d2)
		}
	}

	// Symmetrize against finite-difference asymmetry.
	sym := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sym.Set(i, j, 0.5*(h.At(i, j)+h.At(j, i)))
		}
	}
	return sym
}

// invertOrPseudo inverts the Hessian, falling back to an SVD pseudo-inverse
// when direct inversion fails.
func invertOrPseudo(h *mat.Dense) (*mat.SymDense, error) {
	n, _ := h.Dims()

	var inv mat.Dense
	if err := inv.Inverse(h); err == nil {
		return toSym(&inv, n), nil
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, errors.NotApplicable("Hessian SVD factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)

	tol := 1e-12 * vals[0]
	sInv := mat.NewDense(n, n, nil)
	for i, s := range vals {
		if s > tol {
			sInv.Set(i, i, 1/s)
		}
	}

	var tmp, pinv mat.Dense
	tmp.Mul(&v, sInv)
	pinv.Mul(&tmp, u.T())
	return toSym(&pinv, n), nil
}

func toSym(m *mat.Dense, n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}
