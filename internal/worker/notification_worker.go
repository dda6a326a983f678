package worker

import (
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// workflow events. Delivery runs on the publishing goroutine after commit.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notifications disabled")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}
