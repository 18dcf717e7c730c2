package errs

// Generic codes.
const (
	ServerInternalError = 500
	ArgsError           = 1001
	RecordNotFoundError = 1004
)

// Session codes.
const (
	TokenExpiredError    = 1501
	TokenInvalidError    = 1502
	TokenMissingError    = 1503
	UserNotApprovedError = 1504
)

// Chat relay codes.
const (
	UnauthenticatedError = 1601
	PersistError         = 1602
	NoHandlerError       = 1603
	QueueFullError       = 1604
)

var (
	ErrInternal       = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFoundError")

	ErrTokenExpired    = NewCodeError(TokenExpiredError, "TokenExpiredError")
	ErrTokenInvalid    = NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrTokenMissing    = NewCodeError(TokenMissingError, "TokenMissingError")
	ErrUserNotApproved = NewCodeError(UserNotApprovedError, "UserNotApprovedError")

	ErrUnauthenticated = NewCodeError(UnauthenticatedError, "UnauthenticatedError")
	ErrPersist         = NewCodeError(PersistError, "PersistError")
	ErrNoHandler       = NewCodeError(NoHandlerError, "NoHandlerError")
	ErrQueueFull       = NewCodeError(QueueFullError, "QueueFullError")
)

func init() {
	// token failures are all "unauthenticated" for callers that only care about that.
	_ = DefaultCodeRelation.Add(UnauthenticatedError, TokenExpiredError)
	_ = DefaultCodeRelation.Add(UnauthenticatedError, TokenInvalidError)
	_ = DefaultCodeRelation.Add(UnauthenticatedError, TokenMissingError)
}
