package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeGatewayNotFound, "gateway %s not found", "binance")
	suite.NotNil(err)
	suite.Equal(ErrCodeGatewayNotFound, err.Code)
	suite.Equal("gateway binance not found", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStorageQueryFailed, "failed to load bars", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeStorageQueryFailed, err.Code)
	suite.Equal("failed to load bars", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeStorageQueryFailed, cause, "failed to load bars for symbol: %s", "BTCUSDT")
	suite.NotNil(err)
	suite.Equal(ErrCodeStorageQueryFailed, err.Code)
	suite.Equal("failed to load bars for symbol: BTCUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "Error without cause",
			err:      New(ErrCodeInvalidRequest, "invalid request"),
			expected: fmt.Sprintf("[%d] invalid request", ErrCodeInvalidRequest),
		},
		{
			name:     "Error with cause",
			err:      Wrap(ErrCodeGatewayRequestFailed, "send failed", errors.New("timeout")),
			expected: fmt.Sprintf("[%d] send failed: timeout", ErrCodeGatewayRequestFailed),
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.expected, tt.err.Error())
		})
	}
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeUnknown, "wrapped", cause)
	suite.Equal(cause, err.Unwrap())
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{
			name:     "Structured error",
			err:      New(ErrCodeStrategyNotFound, "strategy not found"),
			expected: ErrCodeStrategyNotFound,
		},
		{
			name:     "Wrapped structured error",
			err:      fmt.Errorf("outer: %w", New(ErrCodeOrderNotFound, "order not found")),
			expected: ErrCodeOrderNotFound,
		},
		{
			name:     "Plain error",
			err:      errors.New("plain"),
			expected: ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.expected, GetCode(tt.err))
		})
	}
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeDuplicateStrategy, "strategy already added")
	suite.True(HasCode(err, ErrCodeDuplicateStrategy))
	suite.False(HasCode(err, ErrCodeStrategyNotFound))
}

func (suite *ErrorTestSuite) TestAs() {
	var target *Error

	err := fmt.Errorf("outer: %w", New(ErrCodeConfigInvalid, "bad config"))
	suite.True(As(err, &target))
	suite.Equal(ErrCodeConfigInvalid, target.Code)
}
