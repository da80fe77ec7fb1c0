package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// IncrementalTransformer はバッチごとに統計を更新できる変換器
type IncrementalTransformer interface {
	Transformer

	// PartialFit は既存の統計に新しいバッチを加える
	PartialFit(X mat.Matrix) error
}
