package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

// Poller drains one round of pending bot updates.
type Poller interface {
	PollOnce(ctx context.Context) error
}

// TelegramHandler adapts the bot monitor to the task interface.
type TelegramHandler struct {
	monitor Poller
}

// NewTelegramHandler wires the polling task handler.
func NewTelegramHandler(monitor Poller) *TelegramHandler {
	return &TelegramHandler{monitor: monitor}
}

func (h *TelegramHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	return h.monitor.PollOnce(ctx)
}
