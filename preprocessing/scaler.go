// Package preprocessing はオンライン学習の前段で使う特徴量変換を提供する
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/oselm/core/model"
	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
//
// PartialFit を使うとバッチごとに平均と分散を更新できるため、
// ストリームで届く特徴量を OSELM に渡す前段として使える。
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Var は各特徴量の母分散
	Var []float64

	// Scale は各特徴量の標準偏差（0に近い場合は1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// NSamplesSeen はこれまでに集計したサンプル数
	NSamplesSeen int

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

var _ model.IncrementalTransformer = (*StandardScaler)(nil)

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	for batch := range batches {
//	    if err := scaler.PartialFit(batch); err != nil { ... }
//	}
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager(),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// IsFitted は統計が一度でも計算されたかを返す
func (s *StandardScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
// それまでの統計は破棄される
func (s *StandardScaler) Fit(X mat.Matrix) error {
	s.state.Reset()
	s.Mean, s.Var, s.Scale = nil, nil, nil
	s.NFeatures, s.NSamplesSeen = 0, 0
	return s.PartialFit(X)
}

// PartialFit は既存の統計に X を加える
//
// バッチの平均・分散を求め、既存の統計と併合する（Chan らの並列分散公式）。
func (s *StandardScaler) PartialFit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.PartialFit", "empty data", errors.ErrEmptyData)
	}
	if s.state.IsFitted() && c != s.NFeatures {
		return errors.NewDimensionError("StandardScaler.PartialFit", s.NFeatures, c, 1)
	}

	if !s.state.IsFitted() {
		s.NFeatures = c
		s.Mean = make([]float64, c)
		s.Var = make([]float64, c)
		s.Scale = make([]float64, c)
	}

	nA := float64(s.NSamplesSeen)
	nB := float64(r)
	n := nA + nB

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		meanB, varB := stat.PopMeanVariance(col, nil)

		delta := meanB - s.Mean[j]
		m2 := s.Var[j]*nA + varB*nB + delta*delta*nA*nB/n

		s.Mean[j] += delta * nB / n
		s.Var[j] = m2 / n
	}
	s.NSamplesSeen += r

	for j := 0; j < c; j++ {
		s.Scale[j] = math.Sqrt(s.Var[j])
		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if s.Scale[j] < 1e-8 {
			s.Scale[j] = 1.0
		}
	}

	if s.state.IsFitted() {
		s.state.RecordUpdate(r)
	} else {
		s.state.SetFitted(c, r)
	}
	return nil
}

func (s *StandardScaler) center(j int) float64 {
	if s.WithMean {
		return s.Mean[j]
	}
	return 0
}

func (s *StandardScaler) scale(j int) float64 {
	if s.WithStd {
		return s.Scale[j]
	}
	return 1
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler.Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.center(j)) / s.scale(j)
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler.InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.scale(j) + s.center(j)
	}, X)
	return result, nil
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d, n_samples_seen=%d)",
		s.WithMean, s.WithStd, s.NFeatures, s.NSamplesSeen)
}
