package metrics

import (
	"image/color"
	"io"
	"os"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// CurvePoint は1回の更新後に記録された評価値
type CurvePoint struct {
	Samples  int     // それまでに学習したサンプル数
	Loss     float64 // 損失
	Accuracy float64 // 精度
}

// LearningCurve はオンライン学習の進行に伴う損失と精度の推移を記録する
type LearningCurve struct {
	mu     sync.Mutex
	Title  string
	points []CurvePoint
}

// NewLearningCurve creates an empty curve.
func NewLearningCurve(title string) *LearningCurve {
	return &LearningCurve{Title: title}
}

// Record は評価値を1点追加する
func (lc *LearningCurve) Record(samples int, loss, accuracy float64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.points = append(lc.points, CurvePoint{Samples: samples, Loss: loss, Accuracy: accuracy})
}

// Points returns a copy of the recorded points.
func (lc *LearningCurve) Points() []CurvePoint {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]CurvePoint, len(lc.points))
	copy(out, lc.points)
	return out
}

// Len returns the number of recorded points.
func (lc *LearningCurve) Len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.points)
}

// LossHistory は損失値の履歴を返す
func (lc *LearningCurve) LossHistory() []float64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]float64, len(lc.points))
	for i, p := range lc.points {
		out[i] = p.Loss
	}
	return out
}

// Plot は横軸を学習サンプル数として損失と精度の折れ線グラフを作成する
func (lc *LearningCurve) Plot() (*plot.Plot, error) {
	points := lc.Points()
	if len(points) == 0 {
		return nil, errors.NewValueError("LearningCurve.Plot", "no points recorded")
	}

	lossXY := make(plotter.XYs, len(points))
	accXY := make(plotter.XYs, len(points))
	for i, pt := range points {
		lossXY[i].X = float64(pt.Samples)
		lossXY[i].Y = pt.Loss
		accXY[i].X = float64(pt.Samples)
		accXY[i].Y = pt.Accuracy
	}

	p := plot.New()
	p.Title.Text = lc.Title
	p.X.Label.Text = "samples seen"
	p.Y.Label.Text = "value"

	lossLine, err := plotter.NewLine(lossXY)
	if err != nil {
		return nil, errors.Wrap(err, "plot loss")
	}
	lossLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}

	accLine, err := plotter.NewLine(accXY)
	if err != nil {
		return nil, errors.Wrap(err, "plot accuracy")
	}
	accLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	p.Add(plotter.NewGrid(), lossLine, accLine)
	p.Legend.Add("loss", lossLine)
	p.Legend.Add("accuracy", accLine)
	p.Legend.Top = true

	return p, nil
}

// SavePlot は学習曲線を画像ファイルに保存する。形式は拡張子（.png, .svg, .pdf 等）で決まる
func (lc *LearningCurve) SavePlot(path string) error {
	p, err := lc.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.NewIOError("LearningCurve.SavePlot", path, err)
	}
	return nil
}

// Chart は学習曲線を echarts の折れ線グラフとして返す
func (lc *LearningCurve) Chart() *charts.Line {
	points := lc.Points()

	samples := make([]int, len(points))
	lossData := make([]opts.LineData, len(points))
	accData := make([]opts.LineData, len(points))
	for i, pt := range points {
		samples[i] = pt.Samples
		lossData[i] = opts.LineData{Value: pt.Loss}
		accData[i] = opts.LineData{Value: pt.Accuracy}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: lc.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(samples).
		AddSeries("loss", lossData).
		AddSeries("accuracy", accData)
	return line
}

// RenderHTML は学習曲線を対話的な HTML として w に書き出す
func (lc *LearningCurve) RenderHTML(w io.Writer) error {
	if lc.Len() == 0 {
		return errors.NewValueError("LearningCurve.RenderHTML", "no points recorded")
	}
	return lc.Chart().Render(w)
}

// SaveHTML は RenderHTML の結果を path に保存する
func (lc *LearningCurve) SaveHTML(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.NewIOError("LearningCurve.SaveHTML", path, err)
	}
	if err := lc.RenderHTML(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewIOError("LearningCurve.SaveHTML", path, err)
	}
	return nil
}
