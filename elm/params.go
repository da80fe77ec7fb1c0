package elm

import (
	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// GetParams はハイパーパラメータを scikit-learn 形式の map で返す
func (m *OSELM) GetParams() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"input_dim":    m.inputDim,
		"hidden_units": m.hiddenUnits,
		"output_dim":   m.outputDim,
		"activation":   m.activationName,
		"loss":         m.lossName,
		"random_state": m.randomState,
		"rcond":        m.rcond,
		"n_jobs":       m.nJobs,
	}
}

// SetParams はハイパーパラメータを設定する
//
// 変更できるのは rcond と n_jobs のみ。次元・活性化関数・損失関数・乱数シードは
// 構築時に固定されるため、指定するとエラーになる。検証に失敗した場合は何も変更しない。
func (m *OSELM) SetParams(params map[string]interface{}) error {
	rcond, hasRCond := 0.0, false
	nJobs, hasNJobs := 0, false

	for key, value := range params {
		switch key {
		case "rcond":
			v, ok := toFloat(value)
			if !ok || v < 0 {
				return errors.NewValidationError(key, "must be a non-negative number", value)
			}
			rcond, hasRCond = v, true
		case "n_jobs":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			nJobs, hasNJobs = v, true
		case "input_dim", "hidden_units", "output_dim", "activation", "loss", "random_state":
			return errors.NewValidationError(key, "fixed at construction", value)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if hasRCond {
		m.rcond = rcond
	}
	if hasNJobs {
		m.nJobs = nJobs
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
