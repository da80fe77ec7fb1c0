package elm

import (
	"math"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// 活性化関数の名前
const (
	ActivationSigmoid = "sigmoid"
	ActivationReLU    = "relu"
)

// activationFunc は隠れ層の前活性値に要素ごとに適用される関数
type activationFunc func(x float64) float64

// sigmoid は exp のオーバーフローを避けるため符号で分岐する
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// resolveActivation は名前を関数に解決する。構築時に一度だけ呼ばれる
func resolveActivation(name string) (activationFunc, error) {
	switch name {
	case ActivationSigmoid:
		return sigmoid, nil
	case ActivationReLU:
		return relu, nil
	default:
		return nil, errors.NewUnsupportedActivationError(name)
	}
}
