package elm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/core/model"
	"github.com/YuminosukeSato/oselm/pkg/errors"
)

const (
	// ModelType は ModelWeights.ModelType に書き込まれる値
	ModelType = "OSELM"

	// WeightsVersion は ModelWeights の形式バージョン
	WeightsVersion = "1.0.0"
)

// ExportWeights は重みをJSON交換形式で返す。チェックサムは設定済み
func (m *OSELM) ExportWeights() (*model.ModelWeights, error) {
	params := m.GetParams()

	m.mu.RLock()
	defer m.mu.RUnlock()

	matrices := map[string]model.MatrixData{
		"alpha": model.NewMatrixData(m.alpha),
		"bias":  model.NewMatrixData(m.bias),
		"beta":  model.NewMatrixData(m.beta),
	}
	if m.p != nil {
		matrices["P"] = model.NewMatrixData(m.p)
	}

	state := m.state.GetState()
	w := &model.ModelWeights{
		ModelType:       ModelType,
		Version:         WeightsVersion,
		Matrices:        matrices,
		Hyperparameters: params,
		Metadata: map[string]interface{}{
			"n_samples_seen": state.NSamples,
			"n_updates":      state.NUpdates,
		},
		IsFitted: state.Fitted,
	}
	w.Checksum = w.ComputeChecksum()
	return w, nil
}

// ImportWeights は ExportWeights の出力を読み込む
//
// 活性化関数が異なる重みや、形状が一致しない行列は ErrFormat で拒否される。
// bias は構築時の値を保持する（形状のみ検証）。
func (m *OSELM) ImportWeights(weights *model.ModelWeights) error {
	const op = "OSELM.ImportWeights"

	if weights == nil {
		return errors.NewValidationError("weights", "must not be nil", nil)
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	if weights.ModelType != ModelType {
		return errors.NewFormatError(op, "", errors.Newf("model type %q, expected %q", weights.ModelType, ModelType))
	}
	if act, ok := weights.Hyperparameters["activation"].(string); ok && act != m.activationName {
		return errors.NewFormatError(op, "", errors.Newf("activation %q, expected %q", act, m.activationName))
	}

	var d decoded
	var err error
	if d.alpha, err = m.importMatrix(op, weights, "alpha", m.inputDim, m.hiddenUnits, true); err != nil {
		return err
	}
	if d.beta, err = m.importMatrix(op, weights, "beta", m.hiddenUnits, m.outputDim, true); err != nil {
		return err
	}
	if _, err = m.importMatrix(op, weights, "bias", 1, m.hiddenUnits, false); err != nil {
		return err
	}
	if d.p, err = m.importMatrix(op, weights, "P", m.hiddenUnits, m.hiddenUnits, false); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitWeights(d)
	return nil
}

func (m *OSELM) importMatrix(op string, w *model.ModelWeights, name string, rows, cols int, required bool) (*mat.Dense, error) {
	md, ok := w.Matrices[name]
	if !ok {
		if required {
			return nil, errors.NewFormatError(op, "", errors.Newf("missing matrix %q", name))
		}
		return nil, nil
	}
	d, err := md.Dense()
	if err != nil {
		return nil, errors.NewFormatError(op, "", err)
	}
	r, c := d.Dims()
	if r != rows || c != cols {
		return nil, errors.NewFormatError(op, "",
			errors.Newf("%s has shape %dx%d, expected %dx%d", name, r, c, rows, cols))
	}
	return d, nil
}
