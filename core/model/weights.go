package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// MatrixData は行列を行優先で保持するシリアライズ用の構造体
type MatrixData struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewMatrixData は行列のコピーから MatrixData を作成する
func NewMatrixData(m mat.Matrix) MatrixData {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return MatrixData{Rows: r, Cols: c, Data: data}
}

// Dense は MatrixData を *mat.Dense に復元する
func (md MatrixData) Dense() (*mat.Dense, error) {
	if md.Rows <= 0 || md.Cols <= 0 {
		return nil, errors.NewValidationError("matrix", "dimensions must be positive", []int{md.Rows, md.Cols})
	}
	if len(md.Data) != md.Rows*md.Cols {
		return nil, errors.NewValidationError("matrix", "data length does not match dimensions", len(md.Data))
	}
	data := make([]float64, len(md.Data))
	copy(data, md.Data)
	return mat.NewDense(md.Rows, md.Cols, data), nil
}

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（OSELM等）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Matrices は名前付きの重み行列
	Matrices map[string]MatrixData `json:"matrices"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`

	// Checksum は Matrices の SHA-256
	Checksum string `json:"checksum,omitempty"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズし、チェックサムを検証する
func (mw *ModelWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, mw); err != nil {
		return errors.NewFormatError("ModelWeights.FromJSON", "", err)
	}
	return mw.Validate()
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewFormatError("ModelWeights.Validate", "", errors.New("model_type is required"))
	}

	if mw.Version == "" {
		return errors.NewFormatError("ModelWeights.Validate", "", errors.New("version is required"))
	}

	if len(mw.Matrices) == 0 {
		return errors.NewFormatError("ModelWeights.Validate", "", errors.New("weights must contain matrices"))
	}

	if mw.Checksum != "" && mw.Checksum != mw.ComputeChecksum() {
		return errors.NewFormatError("ModelWeights.Validate", "", errors.New("checksum mismatch: weights may be corrupted"))
	}

	return nil
}

// ComputeChecksum は行列名の昇順で各行列をJSON化した内容のSHA-256を返す
func (mw *ModelWeights) ComputeChecksum() string {
	names := make([]string, 0, len(mw.Matrices))
	for name := range mw.Matrices {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		data, _ := json.Marshal(mw.Matrices[name])
		h.Write([]byte(name))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		IsFitted:        mw.IsFitted,
		Checksum:        mw.Checksum,
		Matrices:        make(map[string]MatrixData, len(mw.Matrices)),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
		Metadata:        make(map[string]interface{}, len(mw.Metadata)),
	}

	for name, md := range mw.Matrices {
		data := make([]float64, len(md.Data))
		copy(data, md.Data)
		clone.Matrices[name] = MatrixData{Rows: md.Rows, Cols: md.Cols, Data: data}
	}

	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}

	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}

	return clone
}
