package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は教師あり学習モデルの基本インターフェース
type Estimator interface {
	Fitter
	Predictor
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は予測の決定係数 R² を返す
	Score(X, y mat.Matrix) (float64, error)
}

// ParamsAccessor はscikit-learn互換のハイパーパラメータアクセス
type ParamsAccessor interface {
	// GetParams はモデルのハイパーパラメータを取得
	GetParams() map[string]interface{}

	// SetParams はモデルのハイパーパラメータを設定
	SetParams(params map[string]interface{}) error
}

// Persistable はファイルに保存・復元できるモデルのインターフェース
type Persistable interface {
	// SaveWeights は学習済みの重みを保存する
	SaveWeights(path string) error

	// LoadWeights は保存された重みを読み込む
	LoadWeights(path string) error

	// Save はモデル全体を保存する
	Save(path string) error
}

// WeightExporter は重みをエクスポート可能なモデルのインターフェース
type WeightExporter interface {
	// ExportWeights はモデルの重みをエクスポート
	ExportWeights() (*ModelWeights, error)

	// ImportWeights はモデルの重みをインポート
	ImportWeights(weights *ModelWeights) error
}
