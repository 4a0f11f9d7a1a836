package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/muesli/termenv"

	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Watch prints push events from sub until ctx is done. Every line holds the
// session id, the event name and its JSON params.
func Watch(ctx context.Context, sub ports.EventSubscriber, w io.Writer, profile termenv.Profile, logger *slog.Logger) error {
	events, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	logger.Info("Watching push events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			method := profile.String(ev.Method).Bold()
			session := profile.String(ev.SessionID).Foreground(profile.Color("#818cf8"))
			if _, err := fmt.Fprintf(w, "%s %s %s\n", session, method, ev.Params); err != nil {
				return err
			}
		}
	}
}
