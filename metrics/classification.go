package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Argmax は各行で最大値をとる列のインデックスを返す
// 同値の場合は最初に現れた列を採用する
func Argmax(m mat.Matrix) []int {
	r, c := m.Dims()
	idx := make([]int, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		idx[i] = floats.MaxIdx(row)
	}
	return idx
}

// ArgmaxAccuracy は行ごとの argmax が一致する割合を返す
// one-hot 形式の正解ラベルと、スコア形式の予測を比較する用途を想定している
func ArgmaxAccuracy(yTrue, yPred mat.Matrix) (float64, error) {
	r, _, err := sameShape("ArgmaxAccuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	trueIdx := Argmax(yTrue)
	predIdx := Argmax(yPred)

	correct := 0
	for i := 0; i < r; i++ {
		if trueIdx[i] == predIdx[i] {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}
