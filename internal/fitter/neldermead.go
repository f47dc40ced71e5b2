package fitter

import (
	"math"

	"seufit/domain/weibull"
)

// Nelder-Mead coefficients (standard values).
const (
	nmReflect  = 1.0
	nmExpand   = 2.0
	nmContract = 0.5
	nmShrink   = 0.5
)

// minimizeBounded runs a projected Nelder-Mead over the box b. Every
// candidate vertex is clipped into the bounds before evaluation, so the
// objective never sees an infeasible point.
//
// Convergence requires both the relative function-value spread of the simplex
// and the descent-based stationarity probe to pass. The probe checks that no
// feasible coordinate step improves the objective by more than GradTol
// relative units, which is the box-constrained analogue of a max-gradient
// tolerance and stays meaningful when the optimum sits on a bound.
func minimizeBounded(f func(weibull.Vector) float64, x0 weibull.Vector, b weibull.Bounds, opts Options) (weibull.Vector, float64, int, bool) {
	const dim = weibull.NumParams

	type vertex struct {
		x weibull.Vector
		f float64
	}

	eval := func(x weibull.Vector) vertex {
		x = b.Clip(x)
		return vertex{x: x, f: f(x)}
	}

	// Initial simplex: x0 plus a 5% bound-span step along each axis.
	simplex := make([]vertex, dim+1)
	simplex[0] = eval(x0)
	for i := 0; i < dim; i++ {
		step := 0.05 * (b.Upper[i] - b.Lower[i])
		xi := x0
		if xi[i]+step > b.Upper[i] {
			xi[i] -= step
		} else {
			xi[i] += step
		}
		simplex[i+1] = eval(xi)
	}

	sortSimplex := func() {
		for i := 1; i < len(simplex); i++ {
			for j := i; j > 0 && simplex[j].f < simplex[j-1].f; j-- {
				simplex[j], simplex[j-1] = simplex[j-1], simplex[j]
			}
		}
	}
	sortSimplex()

	centroid := func() weibull.Vector {
		var c weibull.Vector
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				c[j] += simplex[i].x[j]
			}
		}
		for j := 0; j < dim; j++ {
			c[j] /= float64(dim)
		}
		return c
	}

	iters := 0
	for ; iters < opts.MaxIter; iters++ {
		best, worst := simplex[0], simplex[dim]

		spread := math.Abs(worst.f-best.f) / (math.Abs(best.f) + 1e-12)
		if spread <= opts.FuncTol && stationary(f, best.x, best.f, b, opts.GradTol) {
			return best.x, best.f, iters, true
		}

		c := centroid()
		reflect := func(coef float64) vertex {
			var x weibull.Vector
			for j := 0; j < dim; j++ {
				x[j] = c[j] + coef*(c[j]-worst.x[j])
			}
			return eval(x)
		}

		r := reflect(nmReflect)
		switch {
		case r.f < best.f:
			e := reflect(nmExpand)
			if e.f < r.f {
				simplex[dim] = e
			} else {
				simplex[dim] = r
			}
		case r.f < simplex[dim-1].f:
			simplex[dim] = r
		default:
			contracted := worst
			if r.f < worst.f {
				contracted = r
			}
			var x weibull.Vector
			for j := 0; j < dim; j++ {
				x[j] = c[j] + nmContract*(contracted.x[j]-c[j])
			}
			cv := eval(x)
			if cv.f < contracted.f {
				simplex[dim] = cv
			} else {
				// Shrink toward the best vertex.
				for i := 1; i <= dim; i++ {
					var xs weibull.Vector
					for j := 0; j < dim; j++ {
						xs[j] = best.x[j] + nmShrink*(simplex[i].x[j]-best.x[j])
					}
					simplex[i] = eval(xs)
				}
			}
		}
		sortSimplex()
	}

	return simplex[0].x, simplex[0].f, iters, false
}

// stationary probes feasible coordinate steps around x and reports whether
// none of them improves f beyond tol relative units.
func stationary(f func(weibull.Vector) float64, x weibull.Vector, fx float64, b weibull.Bounds, tol float64) bool {
	if math.IsInf(fx, 0) || math.IsNaN(fx) {
		return false
	}
	scale := 1 + math.Abs(fx)
	for i := 0; i < weibull.NumParams; i++ {
		span := b.Upper[i] - b.Lower[i]
		h := 1e-6 * math.Max(math.Abs(x[i]), 1e-3*span)
		if h == 0 {
			continue
		}
		for _, dir := range [2]float64{+1, -1} {
			probe := x
			probe[i] += dir * h
			if probe[i] < b.Lower[i] || probe[i] > b.Upper[i] {
				continue
			}
			if (fx-f(probe))/scale > tol {
				return false
			}
		}
	}
	return true
}
