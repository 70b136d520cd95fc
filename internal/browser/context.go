// File: internal/browser/context.go
package browser

import "context"

// combineContext derives a context from primary, which carries the CDP
// target, that is also cancelled when secondary is done. Values come from
// primary only.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
