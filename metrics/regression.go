package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// MSEMatrix は行列全体の要素についての平均二乗誤差を計算する
// 行ごとに平均してから平均するのではなく、n×k 個すべての要素で平均をとる
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := sameShape("MSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := yTrue.At(i, j) - yPred.At(i, j)
			sum += diff * diff
		}
	}

	return sum / float64(r*c), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MAE", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MAE", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}

	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("R2Score", n, yPred.Len(), 0)
	}

	return R2ScoreMatrix(yTrue, yPred)
}

// R2ScoreMatrix は多出力の決定係数を出力ごとに計算し、その平均を返す
// （scikit-learn の multioutput="uniform_average" に相当）
func R2ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := sameShape("R2ScoreMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var total float64
	for j := 0; j < c; j++ {
		var yMean float64
		for i := 0; i < r; i++ {
			yMean += yTrue.At(i, j)
		}
		yMean /= float64(r)

		// 全変動（TSS）と残差変動（RSS）
		var tss, rss float64
		for i := 0; i < r; i++ {
			yTrueVal := yTrue.At(i, j)
			yPredVal := yPred.At(i, j)

			tss += (yTrueVal - yMean) * (yTrueVal - yMean)
			rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
		}

		// 全変動が0の場合（すべてのyTrueが同じ値）
		if tss == 0 {
			return 0, errors.NewValueError("R2ScoreMatrix", "total sum of squares is zero (no variance in yTrue)")
		}
		total += 1 - rss/tss
	}

	return total / float64(c), nil
}

func sameShape(op string, yTrue, yPred mat.Matrix) (int, int, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return 0, 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != cPred {
		return 0, 0, errors.NewDimensionError(op, cTrue, cPred, 1)
	}
	return rTrue, cTrue, nil
}
