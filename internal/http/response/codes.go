package response

// 业务码沿用 HTTP 语义，包体内的 status_code 与之对应。
const (
	CodeOK = 0

	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429

	CodeInternal = 500
)
