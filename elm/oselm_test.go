package elm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/core/model"
	"github.com/YuminosukeSato/oselm/pkg/errors"
	"github.com/YuminosukeSato/oselm/pkg/log"
)

var (
	_ model.StreamingEstimator = (*OSELM)(nil)
	_ model.OnlineMetrics      = (*OSELM)(nil)
	_ model.Scorer             = (*OSELM)(nil)
	_ model.ParamsAccessor     = (*OSELM)(nil)
	_ model.Persistable        = (*OSELM)(nil)
	_ model.WeightExporter     = (*OSELM)(nil)
)

func TestNewOSELM(t *testing.T) {
	m := newTestModel(t, 3, 5, 2)

	assert.Equal(t, 3, m.InputDim())
	assert.Equal(t, 5, m.HiddenUnits())
	assert.Equal(t, 2, m.OutputDim())
	assert.Equal(t, ActivationSigmoid, m.Activation())
	assert.Equal(t, LossMeanSquaredError, m.Loss())
	assert.Equal(t, int64(42), m.RandomState())
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.P())

	alpha := m.Alpha()
	r, c := alpha.Dims()
	assert.Equal(t, []int{3, 5}, []int{r, c})
	for _, v := range alpha.RawMatrix().Data {
		assert.True(t, v >= -1 && v <= 1, "alpha value %v out of range", v)
	}

	bias := m.Bias()
	r, c = bias.Dims()
	assert.Equal(t, []int{1, 5}, []int{r, c})
	for _, v := range bias.RawMatrix().Data {
		assert.Equal(t, 0.0, v)
	}

	beta := m.Beta()
	r, c = beta.Dims()
	assert.Equal(t, []int{5, 2}, []int{r, c})
	for _, v := range beta.RawMatrix().Data {
		assert.True(t, v >= -1 && v <= 1, "beta value %v out of range", v)
	}
}

func TestNewOSELMReproducible(t *testing.T) {
	a := newTestModel(t, 3, 4, 1)
	b := newTestModel(t, 3, 4, 1)
	assert.True(t, mat.Equal(a.Alpha(), b.Alpha()))
	assert.True(t, mat.Equal(a.Beta(), b.Beta()))

	c := newTestModel(t, 3, 4, 1, WithRandomState(7))
	assert.False(t, mat.Equal(a.Alpha(), c.Alpha()))

	d := newTestModel(t, 3, 4, 1, WithRandSource(rand.NewSource(42)))
	assert.True(t, mat.Equal(a.Alpha(), d.Alpha()))
}

func TestNewOSELMErrors(t *testing.T) {
	tests := []struct {
		name     string
		dims     [3]int
		opts     []Option
		sentinel error
	}{
		{name: "unknown activation", dims: [3]int{2, 4, 1}, opts: []Option{WithActivation("tanh")}, sentinel: errors.ErrUnsupportedActivation},
		{name: "unknown loss", dims: [3]int{2, 4, 1}, opts: []Option{WithLoss("hinge")}, sentinel: errors.ErrUnsupportedLoss},
		{name: "zero input dim", dims: [3]int{0, 4, 1}},
		{name: "negative hidden units", dims: [3]int{2, -1, 1}},
		{name: "zero output dim", dims: [3]int{2, 4, 0}},
		{name: "negative rcond", dims: [3]int{2, 4, 1}, opts: []Option{WithRCond(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewOSELM(tt.dims[0], tt.dims[1], tt.dims[2], tt.opts...)
			require.Error(t, err)
			assert.Nil(t, m)
			if tt.sentinel != nil {
				assert.True(t, errors.Is(err, tt.sentinel))
				var cfgErr *errors.ConfigurationError
				assert.True(t, errors.As(err, &cfgErr))
			} else {
				var valErr *errors.ValidationError
				assert.True(t, errors.As(err, &valErr))
			}
		})
	}
}

func TestLossAlias(t *testing.T) {
	m := newTestModel(t, 2, 3, 1, WithLoss("mse"), WithActivation(ActivationReLU))
	assert.Equal(t, LossMeanSquaredError, m.Loss())
	assert.Equal(t, ActivationReLU, m.Activation())
}

func TestPredictBeforeTraining(t *testing.T) {
	m := newTestModel(t, 3, 4, 2)
	X := randomDense(rand.New(rand.NewSource(1)), 5, 3, 1)

	pred, err := m.Predict(X)
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 2, c)

	// out = g(X·alpha + bias)·beta
	var pre mat.Dense
	pre.Mul(X, m.Alpha())
	pre.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, &pre)
	var want mat.Dense
	want.Mul(&pre, m.Beta())
	requireMatrixNear(t, &want, pred, 1e-12)
}

func TestPredictDimensionMismatch(t *testing.T) {
	m := newTestModel(t, 3, 4, 1)
	_, err := m.Predict(mat.NewDense(2, 2, nil))
	require.Error(t, err)
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
}

func TestInitTrainInsufficientData(t *testing.T) {
	m := newTestModel(t, 2, 5, 1)
	rng := rand.New(rand.NewSource(3))
	betaBefore := m.Beta()

	err := m.InitTrain(randomDense(rng, 4, 2, 1), randomDense(rng, 4, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientInitialData))

	var preErr *errors.PreconditionError
	require.True(t, errors.As(err, &preErr))
	assert.Contains(t, preErr.Error(), "initial dataset size must be >= 5, got 4")

	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.P())
	assert.True(t, mat.Equal(betaBefore, m.Beta()))
}

func TestInitTrainExactlyHiddenUnits(t *testing.T) {
	m := newTestModel(t, 2, 4, 1)
	rng := rand.New(rand.NewSource(5))
	require.NoError(t, m.InitTrain(randomDense(rng, 4, 2, 2), randomDense(rng, 4, 1, 1)))
	assert.True(t, m.IsInitialized())
	assert.Equal(t, 4, m.NSamplesSeen())
}

func TestSeqTrainBeforeInit(t *testing.T) {
	m := newTestModel(t, 2, 4, 1)
	rng := rand.New(rand.NewSource(7))
	betaBefore := m.Beta()

	err := m.SeqTrain(randomDense(rng, 3, 2, 1), randomDense(rng, 3, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUninitializedModel))
	assert.Contains(t, err.Error(), "call InitTrain() before sequential updates")

	assert.Nil(t, m.P())
	assert.True(t, mat.Equal(betaBefore, m.Beta()))
	assert.Equal(t, 0, m.NIterations())
}

func TestInitTrainShapes(t *testing.T) {
	m := newTestModel(t, 3, 6, 2)
	rng := rand.New(rand.NewSource(11))
	alphaBefore := m.Alpha()
	biasBefore := m.Bias()

	require.NoError(t, m.InitTrain(randomDense(rng, 20, 3, 2), randomDense(rng, 20, 2, 1)))

	p := m.P()
	require.NotNil(t, p)
	r, c := p.Dims()
	assert.Equal(t, []int{6, 6}, []int{r, c})
	r, c = m.Beta().Dims()
	assert.Equal(t, []int{6, 2}, []int{r, c})

	require.NoError(t, m.SeqTrain(randomDense(rng, 3, 3, 2), randomDense(rng, 3, 2, 1)))

	r, c = m.P().Dims()
	assert.Equal(t, []int{6, 6}, []int{r, c})
	r, c = m.Beta().Dims()
	assert.Equal(t, []int{6, 2}, []int{r, c})

	assert.True(t, mat.Equal(alphaBefore, m.Alpha()), "alpha must not change")
	assert.True(t, mat.Equal(biasBefore, m.Bias()), "bias must not change")
}

// 全データでの一括学習と、初期学習 + 逐次更新の結果が一致すること
func TestSeqTrainMatchesBatchSolution(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	X := randomDense(rng, 40, 3, 2)
	Y := randomDense(rng, 40, 2, 1)

	batch := newTestModel(t, 3, 4, 2)
	require.NoError(t, batch.InitTrain(X, Y))

	t.Run("one block", func(t *testing.T) {
		online := newTestModel(t, 3, 4, 2)
		require.NoError(t, online.InitTrain(rows(X, 0, 10), rows(Y, 0, 10)))
		require.NoError(t, online.SeqTrain(rows(X, 10, 40), rows(Y, 10, 40)))

		predBatch, err := batch.Predict(X)
		require.NoError(t, err)
		predOnline, err := online.Predict(X)
		require.NoError(t, err)
		requireMatrixNear(t, predBatch, predOnline, 1e-6)
		assert.Equal(t, 40, online.NSamplesSeen())
		assert.Equal(t, 1, online.NIterations())
	})

	t.Run("one row at a time", func(t *testing.T) {
		online := newTestModel(t, 3, 4, 2)
		require.NoError(t, online.InitTrain(rows(X, 0, 10), rows(Y, 0, 10)))
		for i := 10; i < 40; i++ {
			require.NoError(t, online.SeqTrain(rows(X, i, i+1), rows(Y, i, i+1)))
		}

		predBatch, err := batch.Predict(X)
		require.NoError(t, err)
		predOnline, err := online.Predict(X)
		require.NoError(t, err)
		requireMatrixNear(t, predBatch, predOnline, 1e-6)
		assert.Equal(t, 30, online.NIterations())
	})
}

// N 行の一回の更新と、1 行ずつ N 回の更新が一致すること
func TestSeqTrainBlockEqualsRowByRow(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	X0 := randomDense(rng, 12, 3, 2)
	Y0 := randomDense(rng, 12, 1, 1)
	X1 := randomDense(rng, 5, 3, 2)
	Y1 := randomDense(rng, 5, 1, 1)

	block := newTestModel(t, 3, 4, 1)
	require.NoError(t, block.InitTrain(X0, Y0))
	require.NoError(t, block.SeqTrain(X1, Y1))

	single := newTestModel(t, 3, 4, 1)
	require.NoError(t, single.InitTrain(X0, Y0))
	for i := 0; i < 5; i++ {
		require.NoError(t, single.SeqTrain(rows(X1, i, i+1), rows(Y1, i, i+1)))
	}

	pb, err := block.Predict(X1)
	require.NoError(t, err)
	ps, err := single.Predict(X1)
	require.NoError(t, err)
	requireMatrixNear(t, pb, ps, 1e-6)
}

// 隠れ層の出力で厳密に表現できる目標は初期学習で誤差なく再現される
func TestExactlyRepresentableTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	m := newTestModel(t, 3, 4, 1)

	X := randomDense(rng, 30, 3, 2)
	h, err := m.Hidden(X)
	require.NoError(t, err)
	betaStar := randomDense(rng, 4, 1, 1)
	var Y mat.Dense
	Y.Mul(h, betaStar)

	require.NoError(t, m.InitTrain(rows(X, 0, 10), rows(&Y, 0, 10)))
	loss, err := m.ComputeLoss(X, &Y)
	require.NoError(t, err)
	assert.InDelta(t, 0, loss, 1e-10)

	require.NoError(t, m.SeqTrain(rows(X, 10, 30), rows(&Y, 10, 30)))
	loss, err = m.ComputeLoss(X, &Y)
	require.NoError(t, err)
	assert.InDelta(t, 0, loss, 1e-10)
}

func TestSeqTrainDoesNotIncreaseLeastSquaresLoss(t *testing.T) {
	// inputDim=2, hiddenUnits=4, outputDim=1: 4 samples to initialize, 2 more to update
	X := mat.NewDense(6, 2, []float64{
		-1.0, -0.8,
		-0.6, 1.2,
		0.9, -1.1,
		1.3, 0.7,
		-0.9, 0.4,
		1.0, -0.2,
	})
	Y := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 0, 1})

	m := newTestModel(t, 2, 4, 1, WithActivation(ActivationSigmoid))
	require.NoError(t, m.InitTrain(rows(X, 0, 4), rows(Y, 0, 4)))

	before, err := m.ComputeLoss(X, Y)
	require.NoError(t, err)

	require.NoError(t, m.SeqTrain(rows(X, 4, 6), rows(Y, 4, 6)))

	after, err := m.ComputeLoss(X, Y)
	require.NoError(t, err)
	assert.LessOrEqual(t, after, before+1e-9)
	assert.Equal(t, 6, m.NSamplesSeen())

	// 未学習の点での損失は保証されないため記録のみ
	heldOutX := mat.NewDense(1, 2, []float64{0.2, 0.9})
	heldOutY := mat.NewDense(1, 1, []float64{0})
	heldOut, err := m.ComputeLoss(heldOutX, heldOutY)
	require.NoError(t, err)
	t.Logf("held-out loss after update: %.6f", heldOut)
}

func TestReinitResetsOnlineState(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m, err := NewOSELM(2, 3, 1, WithRandomState(1), WithLogger(logger))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))

	require.NoError(t, m.InitTrain(randomDense(rng, 6, 2, 1), randomDense(rng, 6, 1, 1)))
	require.NoError(t, m.SeqTrain(randomDense(rng, 2, 2, 1), randomDense(rng, 2, 1, 1)))
	assert.Equal(t, 1, m.NIterations())
	assert.Equal(t, 8, m.NSamplesSeen())

	require.NoError(t, m.InitTrain(randomDense(rng, 5, 2, 1), randomDense(rng, 5, 1, 1)))
	assert.Equal(t, 0, m.NIterations())
	assert.Equal(t, 5, m.NSamplesSeen())
	assert.Len(t, m.GetLossHistory(), 1)
	assert.True(t, logger.ContainsMessage("Re-initializing discards all sequential updates"))
}

func TestFailedUpdateLeavesStateUntouched(t *testing.T) {
	m := newTestModel(t, 2, 3, 1)
	rng := rand.New(rand.NewSource(12))
	require.NoError(t, m.InitTrain(randomDense(rng, 6, 2, 1), randomDense(rng, 6, 1, 1)))

	betaBefore := m.Beta()
	pBefore := m.P()

	t.Run("non-finite targets", func(t *testing.T) {
		Y := mat.NewDense(2, 1, []float64{math.NaN(), 1})
		err := m.SeqTrain(randomDense(rng, 2, 2, 1), Y)
		require.Error(t, err)
		var numErr *errors.NumericalInstabilityError
		assert.True(t, errors.As(err, &numErr))
	})

	t.Run("wrong target width", func(t *testing.T) {
		err := m.SeqTrain(randomDense(rng, 2, 2, 1), randomDense(rng, 2, 3, 1))
		require.Error(t, err)
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("row count mismatch", func(t *testing.T) {
		err := m.SeqTrain(randomDense(rng, 3, 2, 1), randomDense(rng, 2, 1, 1))
		require.Error(t, err)
	})

	assert.True(t, mat.Equal(betaBefore, m.Beta()))
	assert.True(t, mat.Equal(pBefore, m.P()))
	assert.Equal(t, 0, m.NIterations())
	assert.Equal(t, 6, m.NSamplesSeen())
}

func TestInitTrainNonFiniteTargets(t *testing.T) {
	m := newTestModel(t, 2, 3, 1)
	rng := rand.New(rand.NewSource(13))
	Y := randomDense(rng, 5, 1, 1)
	Y.Set(2, 0, math.Inf(1))

	err := m.InitTrain(randomDense(rng, 5, 2, 1), Y)
	require.Error(t, err)
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.P())
}

func TestNonFiniteLossIsNotRecorded(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m, err := NewOSELM(2, 3, 1, WithRandomState(13), WithLogger(logger))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(13))

	// 重みは有限だが、残差の二乗がオーバーフローする
	require.NoError(t, m.InitTrain(randomDense(rng, 10, 2, 1), randomDense(rng, 10, 1, 1e200)))

	assert.True(t, m.IsInitialized())
	assert.Empty(t, m.GetLossHistory())
	assert.True(t, logger.ContainsMessage("Training loss is not finite"))
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorNumerical))
}

func TestPartialFit(t *testing.T) {
	m := newTestModel(t, 2, 3, 2)
	rng := rand.New(rand.NewSource(21))

	require.NoError(t, m.PartialFit(randomDense(rng, 5, 2, 1), randomDense(rng, 5, 2, 1), []int{0, 1}))
	assert.True(t, m.IsInitialized())
	assert.Equal(t, 0, m.NIterations())

	require.NoError(t, m.PartialFit(randomDense(rng, 2, 2, 1), randomDense(rng, 2, 2, 1), nil))
	assert.Equal(t, 1, m.NIterations())
	assert.Equal(t, 7, m.NSamplesSeen())
	assert.Len(t, m.GetLossHistory(), 2)

	err := m.PartialFit(randomDense(rng, 2, 2, 1), randomDense(rng, 2, 2, 1), []int{0, 1, 2})
	require.Error(t, err)
	assert.Equal(t, 1, m.NIterations())
}

func TestPartialFitFirstBatchTooSmall(t *testing.T) {
	m := newTestModel(t, 2, 4, 1)
	rng := rand.New(rand.NewSource(22))
	err := m.PartialFit(randomDense(rng, 2, 2, 1), randomDense(rng, 2, 1, 1), nil)
	assert.True(t, errors.Is(err, errors.ErrInsufficientInitialData))
}

func TestComputeAccuracy(t *testing.T) {
	// 2 クラス one-hot の線形分離可能な問題
	rng := rand.New(rand.NewSource(31))
	n := 60
	X := mat.NewDense(n, 2, nil)
	Y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		label := i % 2
		center := -1.5
		if label == 1 {
			center = 1.5
		}
		X.Set(i, 0, center+0.3*rng.NormFloat64())
		X.Set(i, 1, center+0.3*rng.NormFloat64())
		Y.Set(i, label, 1)
	}

	m := newTestModel(t, 2, 4, 2)
	require.NoError(t, m.InitTrain(rows(X, 0, 20), rows(Y, 0, 20)))
	require.NoError(t, m.SeqTrain(rows(X, 20, 60), rows(Y, 20, 60)))

	acc, err := m.ComputeAccuracy(X, Y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.95)

	score, err := m.Score(X, Y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
}

func TestComputeLossDefinition(t *testing.T) {
	m := newTestModel(t, 2, 3, 2)
	rng := rand.New(rand.NewSource(41))
	X := randomDense(rng, 4, 2, 1)
	Y := randomDense(rng, 4, 2, 1)

	pred, err := m.Predict(X)
	require.NoError(t, err)

	var sum float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			d := pred.At(i, j) - Y.At(i, j)
			sum += d * d
		}
	}
	want := 0.5 * sum / 8

	got, err := m.ComputeLoss(X, Y)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	_, err = m.ComputeLoss(X, randomDense(rng, 4, 3, 1))
	assert.Error(t, err)
}

func TestGetSetParams(t *testing.T) {
	m := newTestModel(t, 2, 3, 1)

	params := m.GetParams()
	assert.Equal(t, 2, params["input_dim"])
	assert.Equal(t, 3, params["hidden_units"])
	assert.Equal(t, 1, params["output_dim"])
	assert.Equal(t, ActivationSigmoid, params["activation"])
	assert.Equal(t, LossMeanSquaredError, params["loss"])
	assert.Equal(t, int64(42), params["random_state"])
	assert.Equal(t, DefaultRCond, params["rcond"])

	require.NoError(t, m.SetParams(map[string]interface{}{"rcond": 1e-10, "n_jobs": 2}))
	params = m.GetParams()
	assert.Equal(t, 1e-10, params["rcond"])
	assert.Equal(t, 2, params["n_jobs"])

	for _, key := range []string{"activation", "loss", "hidden_units", "random_state"} {
		err := m.SetParams(map[string]interface{}{key: "x"})
		require.Error(t, err, key)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	}

	assert.Error(t, m.SetParams(map[string]interface{}{"unknown": 1}))
	assert.Error(t, m.SetParams(map[string]interface{}{"rcond": -1.0}))
	assert.Equal(t, 1e-10, m.GetParams()["rcond"])
}

func TestLogsSequentialUpdate(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m, err := NewOSELM(2, 3, 1, WithRandomState(5), WithLogger(logger))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))

	require.NoError(t, m.InitTrain(randomDense(rng, 4, 2, 1), randomDense(rng, 4, 1, 1)))
	require.NoError(t, m.SeqTrain(randomDense(rng, 2, 2, 1), randomDense(rng, 2, 1, 1)))

	assert.True(t, logger.ContainsMessage("Initial training completed"))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationSeqTrain))
	assert.True(t, logger.ContainsField(log.BatchSizeKey, float64(2)))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "OSELM"))

	logger.Clear()
	err = m.SeqTrain(randomDense(rng, 2, 3, 1), randomDense(rng, 2, 1, 1))
	require.Error(t, err)
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorDimensionMismatch))
}

func TestParallelActivationMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	X := randomDense(rng, parallelThreshold+200, 3, 1)

	serial := newTestModel(t, 3, 5, 1, WithNJobs(1))
	parallel := newTestModel(t, 3, 5, 1, WithNJobs(4))

	hs, err := serial.Hidden(X)
	require.NoError(t, err)
	hp, err := parallel.Hidden(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(hs, hp))
}
