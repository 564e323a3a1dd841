package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidQuantity      ErrorCode = 103
	ErrCodeInvalidPrice         ErrorCode = 104

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeQueryFailed      ErrorCode = 201
	ErrCodeDataSourceClosed ErrorCode = 202

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyAlreadyExists ErrorCode = 401
	ErrCodeStrategyConfigError   ErrorCode = 402

	// Trading errors (500-599)
	ErrCodeInsufficientCapital ErrorCode = 500
	ErrCodeNoPosition          ErrorCode = 501
	ErrCodeOrderNotFound       ErrorCode = 502

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed ErrorCode = 600
	ErrCodeBacktestNoBars     ErrorCode = 601

	// Feed errors (700-799)
	ErrCodeFeedConnectFailed ErrorCode = 700
	ErrCodeFeedClosed        ErrorCode = 701

	// Account/Simulation errors (800-899)
	ErrCodeAccountNotFound   ErrorCode = 800
	ErrCodeAccountNotRunning ErrorCode = 801
	ErrCodeAccountRunning    ErrorCode = 802
	ErrCodeSnapshotCorrupt   ErrorCode = 803
	ErrCodeSnapshotNotFound  ErrorCode = 804
)
