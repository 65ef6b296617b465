package apperr

// Result is the uniform envelope returned across the core's public boundary:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"code": ..., "message": ..., "details": ...}}
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Ok wraps data in a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail wraps err in a failed result. Uncoded errors are reported as UNKNOWN.
func Fail[T any](err error) Result[T] {
	return Result[T]{Error: From(err)}
}

// Wrap builds a result from a (value, error) pair.
func Wrap[T any](data T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(data)
}
