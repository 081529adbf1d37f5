package helper

import (
	"errors"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const commonEventMessage = "events handler error"

// EventHandlerErrorHandler logs the error of a broker message handler.
// Handlers never fail the subscription, so this is the last stop.
func EventHandlerErrorHandler(err error) {
	switch {
	case errors.Is(err, ants.ErrPoolClosed):
		logger.SDebug("event dropped, shutting down", zap.Error(err))
		return
	case errors.Is(err, ants.ErrPoolOverload):
		logger.SWarn("event dropped, dispatch pool saturated", zap.Error(err))
		return
	}

	var custError *custerror.CustomError
	if errors.As(err, &custError) {
		logger.SInfo(commonEventMessage,
			zap.Error(err),
			zap.Uint32("code", custError.Code))
		return
	}
	logger.SError(commonEventMessage, zap.Error(err))
}
