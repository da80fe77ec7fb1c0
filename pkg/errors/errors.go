// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("oselm-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// RankDeficiencyWarning は擬似逆行列の計算で特異値が切り捨てられた場合の警告です。
// 初期学習データの隠れ層出力がフルランクでないことを示します。
type RankDeficiencyWarning struct {
	Op       string
	Rank     int
	Expected int
}

func (w *RankDeficiencyWarning) Error() string {
	return fmt.Sprintf("%s: hidden activation matrix is rank deficient (rank %d, expected %d). Results rely on the pseudoinverse.", w.Op, w.Rank, w.Expected)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *RankDeficiencyWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Int("rank", w.Rank).
		Int("expected", w.Expected).
		Str("type", "RankDeficiencyWarning")
}

// NewRankDeficiencyWarning は新しいRankDeficiencyWarningを作成します。
func NewRankDeficiencyWarning(op string, rank, expected int) *RankDeficiencyWarning {
	return &RankDeficiencyWarning{Op: op, Rank: rank, Expected: expected}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrUnsupportedActivation は未知の活性化関数が指定された場合のエラーです。
	ErrUnsupportedActivation = New("unsupported activation")

	// ErrUnsupportedLoss は未知の損失関数が指定された場合のエラーです。
	ErrUnsupportedLoss = New("unsupported loss")

	// ErrInsufficientInitialData は初期学習のサンプル数が隠れユニット数未満の場合のエラーです。
	ErrInsufficientInitialData = New("insufficient initial data")

	// ErrUninitializedModel は初期学習の前に逐次学習が呼ばれた場合のエラーです。
	ErrUninitializedModel = New("uninitialized model")

	// ErrIO は永続化時の入出力エラーです。
	ErrIO = New("io error")

	// ErrFormat は永続化データの形式が不正な場合のエラーです。
	ErrFormat = New("format error")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ConfigurationError は構築時のパラメータが不正な場合のエラーです。
// 部分的に構築された推定器は返されません。
type ConfigurationError struct {
	Param string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("oselm: %v: %q is not supported for %s", e.Err, e.Value, e.Param)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Str("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewUnsupportedActivationError は未知の活性化関数名に対するエラーを作成します。
func NewUnsupportedActivationError(name string) error {
	return errors.WithStack(&ConfigurationError{Param: "activation", Value: name, Err: ErrUnsupportedActivation})
}

// NewUnsupportedLossError は未知の損失関数名に対するエラーを作成します。
func NewUnsupportedLossError(name string) error {
	return errors.WithStack(&ConfigurationError{Param: "loss", Value: name, Err: ErrUnsupportedLoss})
}

// PreconditionError は呼び出しの前提条件が満たされない場合のエラーです。
// 推定器の状態は変更されません。
type PreconditionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("oselm: %s: %v: %s", e.Op, e.Err, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PreconditionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "PreconditionError")
}

// NewInsufficientInitialDataError は初期データ不足のエラーを作成します。
func NewInsufficientInitialDataError(op string, required, got int) error {
	return errors.WithStack(&PreconditionError{
		Op:     op,
		Reason: fmt.Sprintf("initial dataset size must be >= %d, got %d", required, got),
		Err:    ErrInsufficientInitialData,
	})
}

// NewUninitializedModelError は未初期化モデルに対するエラーを作成します。
func NewUninitializedModelError(op string) error {
	return errors.WithStack(&PreconditionError{
		Op:     op,
		Reason: "call InitTrain() before sequential updates",
		Err:    ErrUninitializedModel,
	})
}

// PersistenceError は保存・読み込みに失敗した場合のエラーです。
// Err は ErrIO または ErrFormat で、errors.Is で判定できます。Cause は下位のエラーです。
type PersistenceError struct {
	Op    string
	Path  string
	Err   error
	Cause error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("oselm: %s: %v", e.Op, e.Err)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PersistenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		Str("kind", e.Err.Error()).
		Str("type", "PersistenceError")
}

// NewIOError は入出力エラーを作成します。
func NewIOError(op, path string, cause error) error {
	return errors.WithStack(&PersistenceError{Op: op, Path: path, Err: ErrIO, Cause: cause})
}

// NewFormatError は形式エラーを作成します。
func NewFormatError(op, path string, cause error) error {
	return errors.WithStack(&PersistenceError{Op: op, Path: path, Err: ErrFormat, Cause: cause})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("oselm: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("oselm: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("oselm: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oselm: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("oselm: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf などを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "seq_train.p"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生した更新番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("oselm: numerical instability detected in %s at update %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Int("iteration", e.Iteration).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}
