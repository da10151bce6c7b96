package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trace returns a middleware tagging every dispatch with a fresh request
// id and logging its milestones through logger at debug level.
func Trace(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *PreparedRequest) (resp *Response, err error) {
			id := uuid.NewString()
			start := time.Now()
			logger.Debug("request dispatched",
				zap.String("request_id", id),
				zap.String("method", req.Method),
				zap.String("url", req.U.Redacted()))
			resp, err = next(ctx, req)
			if err != nil {
				logger.Debug("request failed",
					zap.String("request_id", id),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err))
				return
			}
			logger.Debug("response received",
				zap.String("request_id", id),
				zap.Duration("elapsed", time.Since(start)),
				zap.Int("status", resp.StatusCode))
			return
		}
	}
}
