// Package elm implements the Online Sequential Extreme Learning Machine.
//
// The network has one hidden layer. Input weights are drawn once at random
// and never change; output weights are solved in closed form on an initial
// batch and then refined one batch at a time with the Woodbury identity, so
// earlier batches never need to be revisited.
//
//	m, err := elm.NewOSELM(4, 32, 3, elm.WithRandomState(42))
//	if err != nil { ... }
//	if err := m.InitTrain(X0, Y0); err != nil { ... }
//	for _, b := range batches {
//	    if err := m.SeqTrain(b.X, b.Y); err != nil { ... }
//	}
//	pred, err := m.Predict(X)
package elm

import (
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/core/model"
	"github.com/YuminosukeSato/oselm/core/parallel"
	"github.com/YuminosukeSato/oselm/metrics"
	"github.com/YuminosukeSato/oselm/pkg/errors"
	"github.com/YuminosukeSato/oselm/pkg/log"
)

// 活性化を並列に適用する行数の閾値（この値以下では逐次処理）
const parallelThreshold = 1000

// OSELM は Online Sequential Extreme Learning Machine
//
// alpha と bias は構築時に固定され、学習で変化するのは beta と P のみ。
// InitTrain を一度呼んだ後、SeqTrain で任意回数の逐次更新を行う。
// メソッドは内部でロックを取るが、学習の呼び出し順序は呼び出し側が決める。
type OSELM struct {
	mu    sync.RWMutex
	state *model.StateManager

	inputDim    int
	hiddenUnits int
	outputDim   int

	activationName string
	lossName       string
	activation     activationFunc
	loss           lossFunc

	randomState int64
	rcond       float64
	nJobs       int

	alpha *mat.Dense // inputDim × hiddenUnits
	bias  *mat.Dense // 1 × hiddenUnits
	beta  *mat.Dense // hiddenUnits × outputDim
	p     *mat.Dense // hiddenUnits × hiddenUnits, nil until InitTrain

	lossHistory []float64

	logger log.Logger
}

// NewOSELM は新しい OSELM を作成する
//
// alpha と beta は [-1, 1] の一様乱数、bias は 0 で初期化される。
// 未知の活性化関数・損失関数はここで拒否され、推定器は返されない。
func NewOSELM(inputDim, hiddenUnits, outputDim int, opts ...Option) (*OSELM, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if inputDim <= 0 {
		return nil, errors.NewValidationError("input_dim", "must be positive", inputDim)
	}
	if hiddenUnits <= 0 {
		return nil, errors.NewValidationError("hidden_units", "must be positive", hiddenUnits)
	}
	if outputDim <= 0 {
		return nil, errors.NewValidationError("output_dim", "must be positive", outputDim)
	}
	if cfg.rcond < 0 {
		return nil, errors.NewValidationError("rcond", "must be non-negative", cfg.rcond)
	}

	act, err := resolveActivation(cfg.activation)
	if err != nil {
		return nil, err
	}
	lossName, lossFn, err := resolveLoss(cfg.loss)
	if err != nil {
		return nil, err
	}

	seed := cfg.randomState
	src := cfg.source
	if src == nil {
		if seed < 0 {
			seed = rand.Int63()
		}
		src = rand.NewSource(seed)
	}
	rng := rand.New(src)

	logger := cfg.logger
	if logger == nil {
		logger = log.GetLogger()
	}

	m := &OSELM{
		state:          model.NewStateManager(),
		inputDim:       inputDim,
		hiddenUnits:    hiddenUnits,
		outputDim:      outputDim,
		activationName: cfg.activation,
		lossName:       lossName,
		activation:     act,
		loss:           lossFn,
		randomState:    seed,
		rcond:          cfg.rcond,
		nJobs:          cfg.nJobs,
		alpha:          uniformDense(rng, inputDim, hiddenUnits),
		bias:           mat.NewDense(1, hiddenUnits, nil),
		beta:           uniformDense(rng, hiddenUnits, outputDim),
		logger: logger.With(
			log.ModelNameKey, "OSELM",
			log.ComponentKey, "elm",
		),
	}

	m.logger.Debug("OSELM constructed",
		log.InputDimKey, inputDim,
		log.HiddenUnitsKey, hiddenUnits,
		log.OutputDimKey, outputDim,
		log.ActivationKey, m.activationName,
		log.LossNameKey, m.lossName,
		log.RandomSeedKey, seed,
	)

	return m, nil
}

func uniformDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewDense(r, c, data)
}

// hidden は H = g(X·alpha + bias) を計算する。呼び出し側がロックを保持すること
func (m *OSELM) hidden(op string, X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if c != m.inputDim {
		return nil, errors.NewDimensionError(op, m.inputDim, c, 1)
	}

	h := mat.NewDense(r, m.hiddenUnits, nil)
	h.Mul(X, m.alpha)

	parallel.ParallelizeWithThreshold(r, parallelThreshold, m.nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			row := h.RawRowView(i)
			for j := range row {
				row[j] = m.activation(row[j] + m.bias.At(0, j))
			}
		}
	})

	return h, nil
}

// checkXY は学習データの形状を検証し、行数を返す
func (m *OSELM) checkXY(op string, X, Y mat.Matrix) (int, error) {
	if X == nil || Y == nil {
		return 0, errors.NewModelError(op, "nil data", errors.ErrEmptyData)
	}
	rx, cx := X.Dims()
	ry, cy := Y.Dims()
	if rx == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if cx != m.inputDim {
		return 0, errors.NewDimensionError(op, m.inputDim, cx, 1)
	}
	if ry != rx {
		return 0, errors.NewDimensionError(op, rx, ry, 0)
	}
	if cy != m.outputDim {
		return 0, errors.NewDimensionError(op, m.outputDim, cy, 1)
	}
	return rx, nil
}

// Hidden は隠れ層の出力 g(X·alpha + bias) を返す
func (m *OSELM) Hidden(X mat.Matrix) (mat.Matrix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.hidden("OSELM.Hidden", X)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Predict は H·beta を返す。学習前でも計算できるが、結果に意味はない
func (m *OSELM) Predict(X mat.Matrix) (mat.Matrix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, err := m.predict("OSELM.Predict", X)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *OSELM) predict(op string, X mat.Matrix) (*mat.Dense, error) {
	h, err := m.hidden(op, X)
	if err != nil {
		return nil, err
	}
	r, _ := h.Dims()
	out := mat.NewDense(r, m.outputDim, nil)
	out.Mul(h, m.beta)
	return out, nil
}

// InitTrain は初期バッチから最小二乗解を求める
//
//	P = pinv(HᵀH), beta = P·Hᵀ·Y
//
// 行数は hiddenUnits 以上でなければならない。学習済みのモデルに対して呼ぶと
// それまでの逐次更新はすべて破棄される。
func (m *OSELM) InitTrain(X, Y mat.Matrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initTrain(X, Y)
}

// Fit は InitTrain と同じ
func (m *OSELM) Fit(X, y mat.Matrix) error {
	return m.InitTrain(X, y)
}

func (m *OSELM) initTrain(X, Y mat.Matrix) error {
	const op = "OSELM.InitTrain"
	start := time.Now()

	n, err := m.checkXY(op, X, Y)
	if err != nil {
		m.logFailure(op, log.OperationInitTrain, err)
		return err
	}
	if n < m.hiddenUnits {
		err := errors.NewInsufficientInitialDataError(op, m.hiddenUnits, n)
		m.logger.Error("Initial training rejected",
			err,
			log.OperationKey, log.OperationInitTrain,
			log.ErrorCodeKey, log.ErrorInsufficientData,
			log.SamplesKey, n,
			log.HiddenUnitsKey, m.hiddenUnits,
			log.SuggestionKey, "provide at least hidden_units rows to InitTrain",
		)
		return err
	}

	if m.state.IsFitted() {
		m.logger.Warn("Re-initializing discards all sequential updates",
			log.OperationKey, log.OperationInitTrain,
			log.SamplesSeenKey, m.state.NSamples(),
			log.IterationKey, m.state.NUpdates(),
		)
	}

	var (
		h, p, beta *mat.Dense
		rank       int
	)
	err = errors.SafeExecute(op, func() error {
		var err error
		h, err = m.hidden(op, X)
		if err != nil {
			return err
		}

		var hth mat.Dense
		hth.Mul(h.T(), h)

		p, rank, err = pinv(&hth, m.rcond)
		if err != nil {
			return err
		}

		var pht mat.Dense
		pht.Mul(p, h.T())
		beta = mat.NewDense(m.hiddenUnits, m.outputDim, nil)
		beta.Mul(&pht, Y)

		if err := errors.CheckMatrix(op+" (P)", p, 0); err != nil {
			return err
		}
		return errors.CheckMatrix(op+" (beta)", beta, 0)
	})
	if err != nil {
		m.logFailure(op, log.OperationInitTrain, err)
		return err
	}

	if rank < m.hiddenUnits {
		errors.Warn(errors.NewRankDeficiencyWarning(op, rank, m.hiddenUnits))
	}

	m.p = p
	m.beta = beta
	m.state.SetFitted(m.inputDim, n)
	m.lossHistory = m.lossHistory[:0]
	fields := []any{
		log.OperationKey, log.OperationInitTrain,
		log.SamplesKey, n,
		log.RankKey, rank,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if loss, ok := m.recordLoss(op, h, Y); ok {
		fields = append(fields, log.LossKey, loss)
	}
	m.logger.Debug("Initial training completed", fields...)
	return nil
}

// SeqTrain は新しいバッチで beta と P を逐次更新する
//
//	temp  = pinv(I + H·P·Hᵀ)
//	P'    = P − P·Hᵀ·temp·H·P
//	beta' = beta + P'·Hᵀ·(Y − H·beta)
//
// InitTrain の前に呼ぶと ErrUninitializedModel を返し、状態は変わらない。
// 途中で失敗した場合も beta と P は更新前のまま残る。
func (m *OSELM) SeqTrain(X, Y mat.Matrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seqTrain(X, Y)
}

func (m *OSELM) seqTrain(X, Y mat.Matrix) error {
	const op = "OSELM.SeqTrain"
	start := time.Now()

	if err := m.state.RequireFitted(op); err != nil {
		m.logger.Error("Sequential update rejected",
			err,
			log.OperationKey, log.OperationSeqTrain,
			log.ErrorCodeKey, log.ErrorUninitialized,
			log.SuggestionKey, "call InitTrain first",
		)
		return err
	}

	n, err := m.checkXY(op, X, Y)
	if err != nil {
		m.logFailure(op, log.OperationSeqTrain, err)
		return err
	}

	iteration := m.state.NUpdates() + 1

	var h, p, beta *mat.Dense
	err = errors.SafeExecute(op, func() error {
		var err error
		h, err = m.hidden(op, X)
		if err != nil {
			return err
		}

		var hp mat.Dense
		hp.Mul(h, m.p)

		s := mat.NewDense(n, n, nil)
		s.Mul(&hp, h.T())
		for i := 0; i < n; i++ {
			s.Set(i, i, s.At(i, i)+1)
		}
		temp, _, err := pinv(s, m.rcond)
		if err != nil {
			return err
		}

		var pht mat.Dense
		pht.Mul(m.p, h.T())
		var gain mat.Dense
		gain.Mul(&pht, temp)
		var correction mat.Dense
		correction.Mul(&gain, &hp)

		p = mat.NewDense(m.hiddenUnits, m.hiddenUnits, nil)
		p.Sub(m.p, &correction)

		var pred mat.Dense
		pred.Mul(h, m.beta)
		resid := mat.NewDense(n, m.outputDim, nil)
		resid.Sub(Y, &pred)

		var phtNew mat.Dense
		phtNew.Mul(p, h.T())
		var delta mat.Dense
		delta.Mul(&phtNew, resid)

		beta = mat.NewDense(m.hiddenUnits, m.outputDim, nil)
		beta.Add(m.beta, &delta)

		if err := errors.CheckMatrix(op+" (P)", p, iteration); err != nil {
			return err
		}
		return errors.CheckMatrix(op+" (beta)", beta, iteration)
	})
	if err != nil {
		m.logFailure(op, log.OperationSeqTrain, err)
		return err
	}

	m.p = p
	m.beta = beta
	m.state.RecordUpdate(n)
	fields := []any{
		log.OperationKey, log.OperationSeqTrain,
		log.IterationKey, iteration,
		log.BatchSizeKey, n,
		log.SamplesSeenKey, m.state.NSamples(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if loss, ok := m.recordLoss(op, h, Y); ok {
		fields = append(fields, log.LossKey, loss)
	}
	m.logger.Debug("Sequential update completed", fields...)
	return nil
}

// PartialFit は最初の呼び出しで InitTrain、それ以降は SeqTrain を行う
//
// classes は分類問題で出力列に対応するラベルを渡す。指定する場合は
// 出力次元と同じ長さでなければならない。回帰問題では nil を渡す。
func (m *OSELM) PartialFit(X, y mat.Matrix, classes []int) error {
	if classes != nil && len(classes) != m.outputDim {
		return errors.NewValidationError("classes", "length must equal output_dim", len(classes))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsFitted() {
		return m.initTrain(X, y)
	}
	return m.seqTrain(X, y)
}

// recordLoss は学習バッチ上の損失を履歴に追加する
// 損失が有限でない場合は警告を出し、履歴には追加しない
func (m *OSELM) recordLoss(op string, h *mat.Dense, Y mat.Matrix) (float64, bool) {
	r, _ := h.Dims()
	pred := mat.NewDense(r, m.outputDim, nil)
	pred.Mul(h, m.beta)
	loss, err := m.loss(Y, pred)
	if err != nil {
		return 0, false
	}
	if err := errors.CheckScalar(op+" (loss)", loss, m.state.NUpdates()); err != nil {
		m.logger.Warn("Training loss is not finite", log.OperationKey, op, log.ErrorCodeKey, log.ErrorNumerical, log.ErrAttrKey, err)
		return 0, false
	}
	m.lossHistory = append(m.lossHistory, loss)
	return loss, true
}

func (m *OSELM) logFailure(op, operation string, err error) {
	fields := []any{err, log.OperationKey, operation}
	var dimErr *errors.DimensionError
	var numErr *errors.NumericalInstabilityError
	switch {
	case errors.As(err, &dimErr):
		fields = append(fields, log.ErrorCodeKey, log.ErrorDimensionMismatch)
	case errors.As(err, &numErr):
		fields = append(fields, log.ErrorCodeKey, log.ErrorNumerical)
	}
	m.logger.Error(op+" failed", fields...)
}

// ComputeLoss は構築時に選んだ損失を返す
func (m *OSELM) ComputeLoss(X, Y mat.Matrix) (float64, error) {
	const op = "OSELM.ComputeLoss"
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.checkXY(op, X, Y); err != nil {
		return 0, err
	}
	pred, err := m.predict(op, X)
	if err != nil {
		return 0, err
	}
	return m.loss(Y, pred)
}

// ComputeAccuracy は行ごとの argmax が一致する割合を返す
func (m *OSELM) ComputeAccuracy(X, Y mat.Matrix) (float64, error) {
	const op = "OSELM.ComputeAccuracy"
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.checkXY(op, X, Y); err != nil {
		return 0, err
	}
	pred, err := m.predict(op, X)
	if err != nil {
		return 0, err
	}
	return metrics.ArgmaxAccuracy(Y, pred)
}

// Score は予測の決定係数 R² を出力ごとに計算した平均を返す
func (m *OSELM) Score(X, y mat.Matrix) (float64, error) {
	const op = "OSELM.Score"
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.checkXY(op, X, y); err != nil {
		return 0, err
	}
	pred, err := m.predict(op, X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// NIterations は直近の InitTrain 以降の逐次更新回数を返す
func (m *OSELM) NIterations() int {
	return m.state.NUpdates()
}

// NSamplesSeen は直近の InitTrain 以降に学習したサンプル数を返す
func (m *OSELM) NSamplesSeen() int {
	return m.state.NSamples()
}

// IsInitialized は InitTrain が完了しているかを返す
func (m *OSELM) IsInitialized() bool {
	return m.state.IsFitted()
}

// GetLoss は直近の学習バッチ上の損失を返す。未学習なら 0
func (m *OSELM) GetLoss() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.lossHistory) == 0 {
		return 0
	}
	return m.lossHistory[len(m.lossHistory)-1]
}

// GetLossHistory は直近の InitTrain 以降、各更新直後の学習バッチ上の損失を返す
func (m *OSELM) GetLossHistory() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]float64, len(m.lossHistory))
	copy(out, m.lossHistory)
	return out
}

// InputDim returns the number of input features.
func (m *OSELM) InputDim() int { return m.inputDim }

// HiddenUnits returns the number of hidden neurons.
func (m *OSELM) HiddenUnits() int { return m.hiddenUnits }

// OutputDim returns the number of output columns.
func (m *OSELM) OutputDim() int { return m.outputDim }

// Activation returns the name of the hidden layer activation.
func (m *OSELM) Activation() string { return m.activationName }

// Loss returns the canonical name of the configured loss.
func (m *OSELM) Loss() string { return m.lossName }

// RandomState returns the seed alpha and beta were drawn with, or the
// configured value when a source was injected with WithRandSource.
func (m *OSELM) RandomState() int64 { return m.randomState }

// Alpha returns a copy of the input weights.
func (m *OSELM) Alpha() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mat.DenseCopyOf(m.alpha)
}

// Bias returns a copy of the hidden bias.
func (m *OSELM) Bias() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mat.DenseCopyOf(m.bias)
}

// Beta returns a copy of the output weights.
func (m *OSELM) Beta() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mat.DenseCopyOf(m.beta)
}

// P returns a copy of the inverse correlation matrix, or nil before InitTrain.
func (m *OSELM) P() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.p == nil {
		return nil
	}
	return mat.DenseCopyOf(m.p)
}

// SetLogger replaces the logger. Loaded estimators start with log.GetLogger().
func (m *OSELM) SetLogger(logger log.Logger) {
	if logger == nil {
		logger = log.GetLogger()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger.With(log.ModelNameKey, "OSELM", log.ComponentKey, "elm")
}
