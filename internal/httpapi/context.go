package httpapi

import "context"

// serverBaseCtx is a process-level context that can be canceled on
// shutdown, letting the websocket event feed unblock its readers.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}
