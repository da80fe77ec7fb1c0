package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

func TestLearningCurveRecord(t *testing.T) {
	lc := NewLearningCurve("test")
	lc.Record(10, 0.5, 0.6)
	lc.Record(20, 0.3, 0.8)

	require.Equal(t, 2, lc.Len())
	assert.Equal(t, []float64{0.5, 0.3}, lc.LossHistory())

	points := lc.Points()
	assert.Equal(t, CurvePoint{Samples: 20, Loss: 0.3, Accuracy: 0.8}, points[1])

	points[0].Loss = 99
	assert.Equal(t, 0.5, lc.Points()[0].Loss, "Points must return a copy")
}

func TestLearningCurveSavePlot(t *testing.T) {
	lc := NewLearningCurve("online learning")
	for i := 1; i <= 5; i++ {
		lc.Record(i*10, 1.0/float64(i), 1-1.0/float64(i+1))
	}

	path := filepath.Join(t.TempDir(), "curve.png")
	require.NoError(t, lc.SavePlot(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestLearningCurveEmpty(t *testing.T) {
	lc := NewLearningCurve("empty")
	err := lc.SavePlot(filepath.Join(t.TempDir(), "curve.png"))
	require.Error(t, err)
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}

func TestLearningCurveRenderHTML(t *testing.T) {
	lc := NewLearningCurve("html curve")
	lc.Record(10, 0.4, 0.7)
	lc.Record(20, 0.2, 0.9)

	var buf bytes.Buffer
	require.NoError(t, lc.RenderHTML(&buf))
	assert.Contains(t, buf.String(), "html curve")

	path := filepath.Join(t.TempDir(), "curve.html")
	require.NoError(t, lc.SaveHTML(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "accuracy")

	assert.Error(t, NewLearningCurve("empty").RenderHTML(&buf))
}
