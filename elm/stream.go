package elm

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/oselm/core/model"
	"github.com/YuminosukeSato/oselm/pkg/errors"
	"github.com/YuminosukeSato/oselm/pkg/log"
)

// FitStream はチャネルから届くバッチで学習を続ける
//
// 未初期化の間はバッチを溜め、合計行数が hiddenUnits に達した時点でまとめて
// InitTrain を行う。以降のバッチは届いた順に SeqTrain に渡す。チャネルが
// 閉じられると nil を、コンテキストがキャンセルされると ctx.Err() を返す。
// 初期化に必要な行数が揃う前にチャネルが閉じた場合は ErrInsufficientInitialData。
func (m *OSELM) FitStream(ctx context.Context, dataChan <-chan *model.Batch) error {
	const op = "OSELM.FitStream"

	var pending []*model.Batch
	pendingRows := 0
	batches := 0

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stream cancelled",
				log.OperationKey, log.OperationFitStream,
				log.IterationKey, batches,
			)
			return ctx.Err()

		case batch, ok := <-dataChan:
			if !ok {
				if pendingRows > 0 {
					return errors.NewInsufficientInitialDataError(op, m.hiddenUnits, pendingRows)
				}
				m.logger.Info("Stream finished",
					log.OperationKey, log.OperationFitStream,
					log.IterationKey, batches,
					log.SamplesSeenKey, m.NSamplesSeen(),
				)
				return nil
			}
			if batch == nil {
				continue
			}
			batches++

			if m.IsInitialized() {
				if err := m.SeqTrain(batch.X, batch.Y); err != nil {
					return err
				}
				continue
			}

			n, err := m.checkXY(op, batch.X, batch.Y)
			if err != nil {
				return err
			}
			pending = append(pending, batch)
			pendingRows += n
			if pendingRows < m.hiddenUnits {
				continue
			}

			X, Y := stackBatches(pending, pendingRows, m.inputDim, m.outputDim)
			if err := m.InitTrain(X, Y); err != nil {
				return err
			}
			pending = nil
			pendingRows = 0
		}
	}
}

// stackBatches はバッチを縦に連結する
func stackBatches(batches []*model.Batch, rows, inputDim, outputDim int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(rows, inputDim, nil)
	Y := mat.NewDense(rows, outputDim, nil)
	offset := 0
	for _, b := range batches {
		r, _ := b.X.Dims()
		X.Slice(offset, offset+r, 0, inputDim).(*mat.Dense).Copy(b.X)
		Y.Slice(offset, offset+r, 0, outputDim).(*mat.Dense).Copy(b.Y)
		offset += r
	}
	return X, Y
}
