package transfer

import (
	"context"

	"github.com/eiannone/keyboard"
	"go.uber.org/zap"
)

// WatchAbortKeys cancels the transfer session when q, Esc or Ctrl+C is
// pressed. It returns once ctx is done or a key aborted the session.
func WatchAbortKeys(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) error {
	keys, err := keyboard.GetKeys(10)
	if err != nil {
		return err
	}
	defer keyboard.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-keys:
			if ev.Err != nil {
				return ev.Err
			}
			if isAbortKey(ev.Rune, ev.Key) {
				logger.Warn("abort requested from keyboard")
				cancel()
				return nil
			}
		}
	}
}

func isAbortKey(r rune, key keyboard.Key) bool {
	return r == 'q' || r == 'Q' || key == keyboard.KeyEsc || key == keyboard.KeyCtrlC
}
