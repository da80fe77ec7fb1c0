// Package oselm provides an Online Sequential Extreme Learning Machine for Go,
// designed for services that learn from data arriving in batches.
//
// An OS-ELM is a single hidden layer network. The input weights are random
// and fixed; the output weights are solved in closed form on an initial batch
// and then updated incrementally for every new batch, without revisiting
// earlier data. The API follows scikit-learn conventions (Fit, PartialFit,
// Predict, Score) on top of gonum matrices.
//
// # Packages
//
//   - elm: the OS-ELM estimator, persistence and channel based streaming
//   - metrics: MSE, R², argmax accuracy and learning curve plots
//   - preprocessing: StandardScaler with incremental PartialFit
//   - core/model: estimator interfaces, state management, weight formats
//   - pkg/errors: structured errors built on cockroachdb/errors
//   - pkg/log: structured logging with zerolog and log/slog backends
//
// # Quick Start
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/YuminosukeSato/oselm/elm"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    m, err := elm.NewOSELM(2, 4, 1, elm.WithRandomState(42))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // 初期学習には hiddenUnits 以上のサンプルが必要
//	    X0 := mat.NewDense(4, 2, []float64{-1, -1, -1, 1, 1, -1, 1, 1})
//	    Y0 := mat.NewDense(4, 1, []float64{0, 1, 1, 0})
//	    if err := m.InitTrain(X0, Y0); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // 以降はバッチごとに逐次更新
//	    X1 := mat.NewDense(1, 2, []float64{0.9, 0.8})
//	    Y1 := mat.NewDense(1, 1, []float64{0})
//	    if err := m.SeqTrain(X1, Y1); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := m.Predict(X1)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = pred
//	}
//
// # Error Handling
//
// Errors carry stack traces and wrap sentinels that can be matched with
// errors.Is:
//
//	if errors.Is(err, errors.ErrUninitializedModel) {
//	    // InitTrain has not been called yet
//	}
package oselm
