package model

import "gonum.org/v1/gonum/mat"

// IncrementalEstimator はオンライン学習（逐次学習）可能なモデルのインターフェース
// scikit-learnのpartial_fit APIと互換性を持つ
type IncrementalEstimator interface {
	Estimator

	// PartialFit はミニバッチでモデルを逐次的に学習させる
	// classes は分類問題の場合に全クラスラベルを指定する。回帰問題の場合は nil を渡す
	PartialFit(X, y mat.Matrix, classes []int) error

	// NIterations は実行された逐次更新の回数を返す
	NIterations() int
}

// OnlineMetrics はオンライン学習中のメトリクスを追跡するインターフェース
type OnlineMetrics interface {
	// GetLoss は直近の更新後の損失値を返す
	GetLoss() float64

	// GetLossHistory は損失値の履歴を返す
	GetLossHistory() []float64
}
