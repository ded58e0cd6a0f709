package httpserver

import (
	"context"
	"time"
)

// ShutdownTimeout controls how long to wait for graceful shutdowns.
var ShutdownTimeout = 10 * time.Second

// ShutdownContext returns a context bounded by timeout, or by ShutdownTimeout when timeout is
// not positive. It is detached from any request or signal context.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
