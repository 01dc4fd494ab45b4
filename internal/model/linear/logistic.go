// Package linear implements an L2-regularised binary logistic regression
// trained with a liblinear-style truncated Newton (Newton-CG) solver.
//
// The objective matches liblinear's primal L2-LR with a bias feature:
//
//	f(w) = 0.5*||w||^2 + C * sum_i log(1 + exp(-y_i * w.x_i))
//
// where each x_i is augmented with a constant 1 so the intercept is learned
// (and regularised) like any other weight.
package linear

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/vectorizer"
)

const (
	DefaultC         = 1.0
	DefaultMaxIter   = 100
	DefaultTolerance = 1e-4

	maxCGIter       = 250
	maxLineSearch   = 30
	armijoParameter = 1e-4
)

// ErrSingleClass is returned when training labels contain only one class.
var ErrSingleClass = errors.New("training data contains a single class")

// Options controls the solver.
type Options struct {
	C         float64
	MaxIter   int
	Tolerance float64
}

func (o Options) withDefaults() Options {
	if o.C <= 0 {
		o.C = DefaultC
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// LogisticRegression is a fitted binary linear classifier. It is immutable
// once returned by Fit or FromState.
type LogisticRegression struct {
	weights   []float64
	intercept float64
}

// State is the serialisable form of a fitted model.
type State struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// FitResult reports solver diagnostics.
type FitResult struct {
	Iterations int
	Converged  bool
	Objective  float64
}

// Fit trains a classifier on sparse rows x with boolean targets (true is the
// positive class). numFeatures is the feature-space width. ctx is checked
// before every Newton iteration; a cancelled fit returns ctx.Err().
func Fit(ctx context.Context, x []vectorizer.Vector, y []bool, numFeatures int, opts Options) (*LogisticRegression, FitResult, error) {
	opts = opts.withDefaults()
	if len(x) != len(y) {
		return nil, FitResult{}, fmt.Errorf("fitting classifier: %d rows but %d targets", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, FitResult{}, fmt.Errorf("fitting classifier: no training rows")
	}
	var pos int
	for _, label := range y {
		if label {
			pos++
		}
	}
	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil, FitResult{}, ErrSingleClass
	}

	p := &problem{x: x, c: opts.C, bias: numFeatures, dim: numFeatures + 1}
	p.y = make([]float64, len(y))
	for i, label := range y {
		if label {
			p.y[i] = 1
		} else {
			p.y[i] = -1
		}
	}
	w, res, err := p.solve(ctx, opts, float64(min(pos, neg))/float64(len(y)))
	if err != nil {
		return nil, res, err
	}

	model := &LogisticRegression{
		weights:   w[:numFeatures],
		intercept: w[numFeatures],
	}
	return model, res, nil
}

// Decision returns the signed distance of x from the separating hyperplane.
func (m *LogisticRegression) Decision(x vectorizer.Vector) float64 {
	return x.Dot(m.weights) + m.intercept
}

// Predict reports whether x belongs to the positive class.
func (m *LogisticRegression) Predict(x vectorizer.Vector) bool {
	return m.Decision(x) > 0
}

// Probability returns P(positive | x).
func (m *LogisticRegression) Probability(x vectorizer.Vector) float64 {
	return sigmoid(m.Decision(x))
}

// NumFeatures returns the width of the weight vector.
func (m *LogisticRegression) NumFeatures() int {
	return len(m.weights)
}

// State exports the learned coefficients.
func (m *LogisticRegression) State() State {
	w := make([]float64, len(m.weights))
	copy(w, m.weights)
	return State{Weights: w, Intercept: m.intercept}
}

// FromState rebuilds a classifier from exported coefficients.
func FromState(s State) (*LogisticRegression, error) {
	if len(s.Weights) == 0 {
		return nil, fmt.Errorf("classifier state: no weights")
	}
	for i, w := range s.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("classifier state: non-finite weight at %d", i)
		}
	}
	w := make([]float64, len(s.Weights))
	copy(w, s.Weights)
	return &LogisticRegression{weights: w, intercept: s.Intercept}, nil
}

// problem holds the training data; index bias is the implicit constant
// feature appended to every row.
type problem struct {
	x    []vectorizer.Vector
	y    []float64
	c    float64
	bias int
	dim  int
}

func (p *problem) margin(i int, w []float64) float64 {
	return p.x[i].Dot(w[:p.bias]) + w[p.bias]
}

func (p *problem) objective(w []float64) float64 {
	f := 0.5 * dot(w, w)
	for i := range p.x {
		f += p.c * logLoss(p.y[i]*p.margin(i, w))
	}
	return f
}

// gradient fills g and returns the per-row curvature terms D_ii.
func (p *problem) gradient(w, g []float64) []float64 {
	copy(g, w)
	d := make([]float64, len(p.x))
	for i := range p.x {
		s := sigmoid(p.y[i] * p.margin(i, w))
		d[i] = s * (1 - s)
		coef := p.c * (s - 1) * p.y[i]
		p.addRow(i, coef, g)
	}
	return d
}

// hessianVec computes Hv = v + C * X^T D X v.
func (p *problem) hessianVec(d, v, out []float64) {
	copy(out, v)
	for i := range p.x {
		xv := p.x[i].Dot(v[:p.bias]) + v[p.bias]
		p.addRow(i, p.c*d[i]*xv, out)
	}
}

func (p *problem) addRow(i int, coef float64, out []float64) {
	row := p.x[i]
	for k, idx := range row.Indices {
		out[idx] += coef * row.Values[k]
	}
	out[p.bias] += coef
}

func (p *problem) solve(ctx context.Context, opts Options, balance float64) ([]float64, FitResult, error) {
	logger := slog.Default().With("component", "logistic-solver")
	w := make([]float64, p.dim)
	g := make([]float64, p.dim)
	d := p.gradient(w, g)
	g0 := norm(g)
	stop := opts.Tolerance * math.Max(balance, 1e-12) * g0
	f := p.objective(w)

	res := FitResult{}
	step := make([]float64, p.dim)
	trial := make([]float64, p.dim)
	for iter := 1; iter <= opts.MaxIter; iter++ {
		if norm(g) <= stop {
			res.Converged = true
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		res.Iterations = iter
		p.conjugateGradient(d, g, step)

		// backtracking line search on the Newton direction
		gs := dot(g, step)
		alpha := 1.0
		accepted := false
		var fNew float64
		for ls := 0; ls < maxLineSearch; ls++ {
			for j := range w {
				trial[j] = w[j] + alpha*step[j]
			}
			fNew = p.objective(trial)
			if fNew <= f+armijoParameter*alpha*gs {
				accepted = true
				break
			}
			alpha *= 0.5
		}
		if !accepted {
			logger.Warn("line search failed to decrease objective", "iteration", iter)
			break
		}
		copy(w, trial)
		f = fNew
		d = p.gradient(w, g)
		logger.Debug("newton iteration",
			"iteration", iter,
			"objective", f,
			"grad_norm", norm(g),
			"step", alpha,
		)
	}
	if !res.Converged && norm(g) <= stop {
		res.Converged = true
	}
	res.Objective = f
	return w, res, nil
}

// conjugateGradient approximately solves H s = -g.
func (p *problem) conjugateGradient(d, g, s []float64) {
	n := len(g)
	r := make([]float64, n)
	dir := make([]float64, n)
	hd := make([]float64, n)
	for j := range g {
		s[j] = 0
		r[j] = -g[j]
		dir[j] = r[j]
	}
	rr := dot(r, r)
	tol := 0.1 * math.Sqrt(rr)
	for it := 0; it < maxCGIter; it++ {
		if math.Sqrt(rr) <= tol {
			break
		}
		p.hessianVec(d, dir, hd)
		dHd := dot(dir, hd)
		if dHd <= 0 {
			break
		}
		alpha := rr / dHd
		for j := range s {
			s[j] += alpha * dir[j]
			r[j] -= alpha * hd[j]
		}
		rrNew := dot(r, r)
		beta := rrNew / rr
		for j := range dir {
			dir[j] = r[j] + beta*dir[j]
		}
		rr = rrNew
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logLoss returns log(1 + exp(-z)) without overflow.
func logLoss(z float64) float64 {
	if z >= 0 {
		return math.Log1p(math.Exp(-z))
	}
	return -z + math.Log1p(math.Exp(z))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
