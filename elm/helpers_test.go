package elm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/pkg/log"
)

func randomDense(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = scale * (2*rng.Float64() - 1)
	}
	return mat.NewDense(r, c, data)
}

// rows returns a copy of rows [i, j) of m.
func rows(m *mat.Dense, i, j int) *mat.Dense {
	_, c := m.Dims()
	return mat.DenseCopyOf(m.Slice(i, j, 0, c))
}

func newTestModel(t *testing.T, inputDim, hidden, output int, opts ...Option) *OSELM {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts = append([]Option{WithRandomState(42), WithLogger(logger)}, opts...)
	m, err := NewOSELM(inputDim, hidden, output, opts...)
	require.NoError(t, err)
	return m
}

func requireMatrixNear(t *testing.T, want, got mat.Matrix, tol float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr, "rows")
	require.Equal(t, wc, gc, "cols")
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), tol, "element (%d, %d)", i, j)
		}
	}
}
