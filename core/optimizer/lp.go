package optimizer

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// solveRelaxation solves the LP relaxation of the assignment problem: one
// continuous variable per (vessel, berth) pair plus one leave-unassigned
// slack per vessel, maximizing the score total subject to each vessel being
// placed at most once and each berth holding at most capacity calls over the
// horizon. The fractional solution orders the greedy construction; it is
// never applied directly.
func solveRelaxation(scores [][]float64, capacity []float64) ([][]float64, error) {
	vessels := len(scores)
	if vessels == 0 {
		return nil, nil
	}
	berths := len(scores[0])
	cols := vessels * (berths + 1) // + slack column per vessel

	// maximize scores -> minimize negated costs
	c := make([]float64, cols)
	for vi, row := range scores {
		for bi, s := range row {
			c[vi*(berths+1)+bi] = -s
		}
	}

	// equality: per vessel, assignments + slack sum to one
	a := mat.NewDense(vessels, cols, nil)
	b := make([]float64, vessels)
	for vi := 0; vi < vessels; vi++ {
		for bi := 0; bi <= berths; bi++ {
			a.Set(vi, vi*(berths+1)+bi, 1)
		}
		b[vi] = 1
	}

	// inequality: berth capacity rows plus x <= 1 bounds
	rows := berths + cols
	g := mat.NewDense(rows, cols, nil)
	h := make([]float64, rows)
	for bi := 0; bi < berths; bi++ {
		for vi := 0; vi < vessels; vi++ {
			g.Set(bi, vi*(berths+1)+bi, 1)
		}
		h[bi] = capacity[bi]
	}
	for i := 0; i < cols; i++ {
		g.Set(berths+i, i, 1)
		h[berths+i] = 1
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, vessels)
	for vi := range out {
		out[vi] = make([]float64, berths)
		for bi := 0; bi < berths; bi++ {
			out[vi][bi] = sol[vi*(berths+1)+bi]
		}
	}
	return out, nil
}

// lpSolve points to the relaxation solver. It can be overridden in tests to
// simulate solver failures.
var lpSolve = solveRelaxation
