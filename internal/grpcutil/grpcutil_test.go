package grpcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorCode(t *testing.T) {
	err := status.New(codes.DataLoss, "").Err()

	assert.Equal(t, codes.DataLoss, ErrorCode(err))
	assert.Equal(t, codes.Unknown, ErrorCode(assert.AnError))
	assert.Equal(t, codes.OK, ErrorCode(nil))
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", ResultLabel(nil))
	assert.Equal(t, "unreachable", ResultLabel(status.Error(codes.Unavailable, "")))
	assert.Equal(t, "unreachable", ResultLabel(status.Error(codes.DeadlineExceeded, "")))
	assert.Equal(t, "canceled", ResultLabel(status.Error(codes.Canceled, "")))
	assert.Equal(t, "error", ResultLabel(assert.AnError))
	assert.True(t, IsCanceled(status.Error(codes.Canceled, "")))
}
