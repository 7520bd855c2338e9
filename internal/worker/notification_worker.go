package worker

import (
	"context"

	"github.com/spec-kit/redemption-queue/internal/service"
)

// StartNotificationWorker registers notification handlers and starts
// delivering queued notifications in the background.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	go notificationService.Run(ctx)
}
