// Package log defines standard attribute keys for machine learning operations.
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log analysis and filtering.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Architecture of the estimator
const (
	// InputDimKey is the number of input features.
	InputDimKey = "model.input_dim"

	// HiddenUnitsKey is the width of the hidden layer.
	HiddenUnitsKey = "model.hidden_units"

	// OutputDimKey is the number of outputs.
	OutputDimKey = "model.output_dim"

	// ActivationKey is the name of the hidden-layer activation.
	ActivationKey = "model.activation"

	// LossNameKey is the name of the configured loss.
	LossNameKey = "model.loss"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// TargetsKey indicates the number of target variables.
	TargetsKey = "data.targets"

	// BatchSizeKey indicates the size of processing batches.
	BatchSizeKey = "data.batch_size"

	// SamplesSeenKey is the total number of samples folded into the model.
	SamplesSeenKey = "data.samples_seen"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// IterationKey records the sequential update number.
	IterationKey = "training.iteration"

	// RankKey records the numerical rank found by a pseudoinverse.
	RankKey = "training.rank"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Persistence and Configuration
const (
	// PathKey is the file a model or its weights are read from or written to.
	PathKey = "io.path"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit         = "fit"
	OperationPredict     = "predict"
	OperationInitTrain   = "init_train"
	OperationSeqTrain    = "seq_train"
	OperationPartialFit  = "partial_fit"
	OperationFitStream   = "fit_stream"
	OperationScore       = "score"
	OperationSaveWeights = "save_weights"
	OperationLoadWeights = "load_weights"
	OperationSave        = "save"
	OperationLoad        = "load"

	PhaseTraining   = "training"
	PhaseInference  = "inference"
	PhasePersisting = "persistence"

	ErrorUninitialized     = "UNINITIALIZED_MODEL"
	ErrorInsufficientData  = "INSUFFICIENT_INITIAL_DATA"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorNumerical         = "NUMERICAL_INSTABILITY"
)
