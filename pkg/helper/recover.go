package helper

import (
	"fmt"
	"runtime/debug"

	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
)

// RecoverPanic recovers from a panic, logs the stack trace and stores the
// panic as an error in *errp so the caller returns it instead of crashing.
// Usage: defer helper.RecoverPanic(logger, "pipeline", &err)
func RecoverPanic(log *logger.Logger, name string, errp *error) {
	if r := recover(); r != nil {
		log.Errorf("PANIC recovered in %s: %v\nStack: %s", name, r, debug.Stack())
		if errp != nil {
			*errp = fmt.Errorf("panic in %s: %v", name, r)
		}
	}
}
