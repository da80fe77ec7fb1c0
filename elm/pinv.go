package elm

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// DefaultRCond は擬似逆行列で切り捨てる特異値の相対閾値
const DefaultRCond = 1e-15

// pinv は特異値分解による Moore-Penrose 擬似逆行列と数値ランクを返す
// rcond * 最大特異値 以下の特異値は 0 として扱う
func pinv(a mat.Matrix, rcond float64) (*mat.Dense, int, error) {
	r, c := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, errors.NewModelError("pinv", "svd factorization failed", errors.ErrSingularMatrix)
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := 0.0
	if len(s) > 0 {
		cutoff = rcond * floats.Max(s)
	}

	// V * diag(1/s) を列ごとのスケーリングで作る
	vr, _ := v.Dims()
	rank := 0
	for j, sv := range s {
		inv := 0.0
		if sv > cutoff {
			inv = 1 / sv
			rank++
		}
		for i := 0; i < vr; i++ {
			v.Set(i, j, v.At(i, j)*inv)
		}
	}

	out := mat.NewDense(c, r, nil)
	out.Mul(&v, u.T())
	return out, rank, nil
}
