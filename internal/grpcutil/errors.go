package grpcutil

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode extracts a gRPC error code from an error. If the error is not a
// gRPC error, it returns codes.Unknown.
func ErrorCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	if st, ok := status.FromError(err); ok {
		return st.Code()
	}

	return codes.Unknown
}

func IsCanceled(err error) bool {
	return ErrorCode(err) == codes.Canceled
}

// IsUnreachable reports whether the remote side could not be reached at all,
// as opposed to an error returned by the remote handler.
func IsUnreachable(err error) bool {
	switch ErrorCode(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

// ResultLabel maps an RPC error to a short label for metrics.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsUnreachable(err):
		return "unreachable"
	case IsCanceled(err):
		return "canceled"
	default:
		return "error"
	}
}
