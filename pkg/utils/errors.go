package utils

import (
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// LogError logs err at error level. For oops errors the code and context
// are attached as separate fields.
func LogError(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	if oopsErr, ok := oops.AsOops(err); ok {
		fields = append(fields, zap.String("error", oopsErr.Error()))
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, zap.Any("code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, zap.Any("context", ctx))
		}
		log.Error(msg, fields...)
		return
	}
	log.Error(msg, append(fields, zap.Error(err))...)
}

// ErrorCode returns the oops code of err, or "" when there is none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
