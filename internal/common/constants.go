package common

// Model names, used as metric labels, audit keys and registry entries
const (
	ModelIris = "iris"
	ModelLoan = "loan"
)

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvPort             = "PORT"
	EnvIrisModelPath    = "IRIS_MODEL_PATH"
	EnvIrisEncoderPath  = "IRIS_ENCODER_PATH"
	EnvLoanModelPath    = "LOAN_MODEL_PATH"
	EnvLoanEncodersPath = "LOAN_ENCODERS_PATH"
	EnvModelsDir        = "MODELS_DIR"
	EnvDataPath         = "DATA_PATH"
	EnvAuditEnabled     = "AUDIT_ENABLED"
	EnvLogLevel         = "LOG_LEVEL"
	EnvReadTimeout      = "READ_TIMEOUT"
	EnvWriteTimeout     = "WRITE_TIMEOUT"
	EnvIdleTimeout      = "IDLE_TIMEOUT"
	EnvMaxBatchSize     = "MAX_BATCH_SIZE"
	EnvAPIURL           = "ML_API_URL"
)

// Configuration defaults
const (
	DefaultPort             = 8000
	DefaultIrisModelPath    = "models/iris-model/dt_model.json"
	DefaultIrisEncoderPath  = "models/iris-model/label_encoder.json"
	DefaultLoanModelPath    = "models/loan-approval/results/random_forest_model.json"
	DefaultLoanEncodersPath = "models/loan-approval/results/label_encoders.json"
	DefaultModelsDir        = "models"
	DefaultLogLevel         = "info"
	DefaultMaxBatchSize     = 1000
	DefaultAPIURL           = "http://localhost:8000"
)

// Error codes returned in API error bodies
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodePredictionError = "PREDICTION_ERROR"
)

// Error messages returned in API error bodies
const (
	ErrMsgValidationFailed = "Input validation failed"
	ErrMsgPredictionFailed = "Failed to process prediction"
	ErrMsgMalformedBody    = "Malformed request body"
	ErrMsgBatchTooLarge    = "Batch exceeds maximum size"
)

// Validation constants
const (
	MinPort         = 1024
	MaxPort         = 65535
	MaxBatchSizeCap = 100000
	IrisFeatures    = 4
)
