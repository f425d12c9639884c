package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter    ErrorCode = 100
	ErrCodeInvalidRequest      ErrorCode = 101
	ErrCodeInvalidOrderRequest ErrorCode = 102
	ErrCodeInvalidSymbol       ErrorCode = 103
	ErrCodeInvalidVolume       ErrorCode = 104
	ErrCodeInvalidPrice        ErrorCode = 105
	ErrCodeInvalidVersion      ErrorCode = 106

	// Event engine errors (200-299)
	ErrCodeHandlerAlreadyRegistered ErrorCode = 200
	ErrCodeHandlerNotRegistered     ErrorCode = 201
	ErrCodeEngineNotRunning         ErrorCode = 202

	// Gateway errors (300-399)
	ErrCodeGatewayNotFound      ErrorCode = 300
	ErrCodeGatewayNotConnected  ErrorCode = 301
	ErrCodeGatewayRequestFailed ErrorCode = 302
	ErrCodeGatewayStreamClosed  ErrorCode = 303
	ErrCodeDuplicateGateway     ErrorCode = 304

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeDuplicateStrategy    ErrorCode = 401
	ErrCodeStrategyNotInited    ErrorCode = 402
	ErrCodeStrategyRuntimeError ErrorCode = 403
	ErrCodeVersionMismatch      ErrorCode = 404

	// Order errors (500-599)
	ErrCodeOrderNotFound     ErrorCode = 500
	ErrCodeOrderRejected     ErrorCode = 501
	ErrCodeStopOrderNotFound ErrorCode = 502

	// Storage errors (600-699)
	ErrCodeStorageInitFailed  ErrorCode = 600
	ErrCodeStorageQueryFailed ErrorCode = 601
	ErrCodeStorageWriteFailed ErrorCode = 602

	// Config errors (700-799)
	ErrCodeConfigReadFailed  ErrorCode = 700
	ErrCodeConfigParseFailed ErrorCode = 701
	ErrCodeConfigInvalid     ErrorCode = 702
)
