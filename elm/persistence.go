package elm

import (
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/core/model"
	"github.com/YuminosukeSato/oselm/pkg/errors"
	"github.com/YuminosukeSato/oselm/pkg/log"
)

// weightsBlob は SaveWeights の保存形式。各行列は gonum のバイナリ形式で保持する
type weightsBlob struct {
	Alpha []byte
	Beta  []byte
	P     []byte // InitTrain 前は空
}

// snapshot は Save の保存形式
type snapshot struct {
	InputDim    int
	HiddenUnits int
	OutputDim   int
	Activation  string
	Loss        string
	RandomState int64
	RCond       float64
	NJobs       int
	Bias        []byte
	Weights     weightsBlob
	State       model.ModelState
	LossHistory []float64
}

// decoded は検証済みの読み込み結果。コミットするまで推定器には触れない
type decoded struct {
	alpha, beta, p *mat.Dense
}

func (m *OSELM) encodeWeights() (weightsBlob, error) {
	var blob weightsBlob
	var err error
	if blob.Alpha, err = m.alpha.MarshalBinary(); err != nil {
		return blob, err
	}
	if blob.Beta, err = m.beta.MarshalBinary(); err != nil {
		return blob, err
	}
	if m.p != nil {
		if blob.P, err = m.p.MarshalBinary(); err != nil {
			return blob, err
		}
	}
	return blob, nil
}

func decodeMatrix(op, path, name string, data []byte, rows, cols int) (*mat.Dense, error) {
	var d mat.Dense
	if err := d.UnmarshalBinary(data); err != nil {
		return nil, errors.NewFormatError(op, path, errors.Wrapf(err, "decode %s", name))
	}
	r, c := d.Dims()
	if r != rows || c != cols {
		return nil, errors.NewFormatError(op, path,
			errors.Newf("%s has shape %dx%d, expected %dx%d", name, r, c, rows, cols))
	}
	return &d, nil
}

// decodeWeights は blob を復元し、形状を推定器の次元と照合する
func (m *OSELM) decodeWeights(op, path string, blob weightsBlob) (decoded, error) {
	var out decoded
	var err error
	if out.alpha, err = decodeMatrix(op, path, "alpha", blob.Alpha, m.inputDim, m.hiddenUnits); err != nil {
		return out, err
	}
	if out.beta, err = decodeMatrix(op, path, "beta", blob.Beta, m.hiddenUnits, m.outputDim); err != nil {
		return out, err
	}
	if len(blob.P) > 0 {
		if out.p, err = decodeMatrix(op, path, "P", blob.P, m.hiddenUnits, m.hiddenUnits); err != nil {
			return out, err
		}
	}
	return out, nil
}

// commitWeights は読み込んだ重みを反映する。呼び出し側がロックを保持すること
func (m *OSELM) commitWeights(d decoded) {
	m.alpha = d.alpha
	m.beta = d.beta
	m.p = d.p
	m.lossHistory = nil
	if d.p == nil {
		m.state.Reset()
		return
	}
	// 重みにはカウンタが含まれないため、以前の学習履歴は引き継がない
	m.state.SetFitted(m.inputDim, 0)
}

// SaveWeights は {alpha, beta, P} を path に保存する
func (m *OSELM) SaveWeights(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, err := m.encodeWeights()
	if err != nil {
		return errors.NewFormatError("OSELM.SaveWeights", path, err)
	}
	if err := model.SaveModel(blob, path); err != nil {
		m.logger.Error("Failed to save weights", err, log.OperationKey, log.OperationSaveWeights, log.PathKey, path)
		return err
	}
	m.logger.Info("Weights saved", log.OperationKey, log.OperationSaveWeights, log.PathKey, path)
	return nil
}

// SaveWeightsTo は {alpha, beta, P} を w に書き出す
func (m *OSELM) SaveWeightsTo(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, err := m.encodeWeights()
	if err != nil {
		return errors.NewFormatError("OSELM.SaveWeightsTo", "", err)
	}
	return model.SaveModelToWriter(blob, w)
}

// LoadWeights は SaveWeights で保存した重みを読み込む
//
// すべての行列の形状が推定器の次元と一致しない場合は ErrFormat を返し、
// 状態は変更しない。P を含む重みを読み込むと推定器は初期化済みになる。
func (m *OSELM) LoadWeights(path string) error {
	const op = "OSELM.LoadWeights"

	var blob weightsBlob
	if err := model.LoadModel(&blob, path); err != nil {
		m.logger.Error("Failed to load weights", err, log.OperationKey, log.OperationLoadWeights, log.PathKey, path)
		return err
	}

	d, err := m.decodeWeights(op, path, blob)
	if err != nil {
		m.logger.Error("Failed to load weights", err, log.OperationKey, log.OperationLoadWeights, log.PathKey, path)
		return err
	}

	m.mu.Lock()
	m.commitWeights(d)
	m.mu.Unlock()

	m.logger.Info("Weights loaded", log.OperationKey, log.OperationLoadWeights, log.PathKey, path)
	return nil
}

// LoadWeightsFrom は r から重みを読み込む
func (m *OSELM) LoadWeightsFrom(r io.Reader) error {
	var blob weightsBlob
	if err := model.LoadModelFromReader(&blob, r); err != nil {
		return err
	}

	d, err := m.decodeWeights("OSELM.LoadWeightsFrom", "", blob)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitWeights(d)
	return nil
}

// Save は推定器全体（次元、bias、活性化関数、損失関数、学習状態を含む）を保存する
// 復元には Load を使う
func (m *OSELM) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, err := m.snapshot()
	if err != nil {
		return errors.NewFormatError("OSELM.Save", path, err)
	}
	if err := model.SaveModel(snap, path); err != nil {
		m.logger.Error("Failed to save model", err, log.OperationKey, log.OperationSave, log.PathKey, path)
		return err
	}
	m.logger.Info("Model saved", log.OperationKey, log.OperationSave, log.PathKey, path)
	return nil
}

func (m *OSELM) snapshot() (*snapshot, error) {
	weights, err := m.encodeWeights()
	if err != nil {
		return nil, err
	}
	bias, err := m.bias.MarshalBinary()
	if err != nil {
		return nil, err
	}
	history := make([]float64, len(m.lossHistory))
	copy(history, m.lossHistory)

	return &snapshot{
		InputDim:    m.inputDim,
		HiddenUnits: m.hiddenUnits,
		OutputDim:   m.outputDim,
		Activation:  m.activationName,
		Loss:        m.lossName,
		RandomState: m.randomState,
		RCond:       m.rcond,
		NJobs:       m.nJobs,
		Bias:        bias,
		Weights:     weights,
		State:       m.state.GetState(),
		LossHistory: history,
	}, nil
}

// Load は Save で保存した推定器を復元する
// 活性化関数と損失関数は保存された名前から解決し直される
func Load(path string) (*OSELM, error) {
	const op = "elm.Load"

	var snap snapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return nil, err
	}

	if snap.InputDim <= 0 || snap.HiddenUnits <= 0 || snap.OutputDim <= 0 {
		return nil, errors.NewFormatError(op, path,
			errors.Newf("invalid dimensions %dx%dx%d", snap.InputDim, snap.HiddenUnits, snap.OutputDim))
	}
	act, err := resolveActivation(snap.Activation)
	if err != nil {
		return nil, errors.NewFormatError(op, path, err)
	}
	lossName, lossFn, err := resolveLoss(snap.Loss)
	if err != nil {
		return nil, errors.NewFormatError(op, path, err)
	}
	bias, err := decodeMatrix(op, path, "bias", snap.Bias, 1, snap.HiddenUnits)
	if err != nil {
		return nil, err
	}

	m := &OSELM{
		state:          model.NewStateManager(),
		inputDim:       snap.InputDim,
		hiddenUnits:    snap.HiddenUnits,
		outputDim:      snap.OutputDim,
		activationName: snap.Activation,
		lossName:       lossName,
		activation:     act,
		loss:           lossFn,
		randomState:    snap.RandomState,
		rcond:          snap.RCond,
		nJobs:          snap.NJobs,
		bias:           bias,
		logger:         log.GetLogger().With(log.ModelNameKey, "OSELM", log.ComponentKey, "elm"),
	}

	d, err := m.decodeWeights(op, path, snap.Weights)
	if err != nil {
		return nil, err
	}
	m.alpha, m.beta, m.p = d.alpha, d.beta, d.p
	if m.p != nil {
		m.state.SetState(snap.State)
	}
	m.lossHistory = snap.LossHistory

	m.logger.Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.SamplesSeenKey, m.state.NSamples(),
	)
	return m, nil
}
