package elm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/metrics"
	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// LossMeanSquaredError は 0.5 * mean((pred - y)^2) を全要素について計算する損失
const LossMeanSquaredError = "mean_squared_error"

// lossFunc は予測と正解からスカラーの損失を計算する
type lossFunc func(yTrue, yPred mat.Matrix) (float64, error)

func halfMeanSquaredError(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := metrics.MSEMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 0.5 * mse, nil
}

// resolveLoss は損失名を正規名と関数に解決する。"mse" は mean_squared_error の別名
func resolveLoss(name string) (string, lossFunc, error) {
	switch name {
	case LossMeanSquaredError, "mse":
		return LossMeanSquaredError, halfMeanSquaredError, nil
	default:
		return "", nil, errors.NewUnsupportedLossError(name)
	}
}
