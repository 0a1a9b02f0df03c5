// assert.go provides invariant checks that panic through the logger.

// Package internal contains helpers shared by avrecode packages.
package internal

import (
	"context"

	"github.com/xaionaro-go/avrecode/logger"
)

// Assert panics (via logger.Panic, so the message reaches the log sink first)
// if mustBeTrue is false.
func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	logger.Panic(ctx, "assertion failed", extraArgs)
}
