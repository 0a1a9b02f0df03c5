package internal

import (
	"context"
	"runtime"

	"github.com/xaionaro-go/avrecode/logger"
)

// SetFinalizerFree makes the garbage collector call Free on a native
// object once nothing references it anymore.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Debugf(ctx, "freeing %T", freer)
		freer.Free()
	})
}

func SetFinalizer[T any](
	ctx context.Context,
	obj T,
	callback func(in T),
) {
	runtime.SetFinalizer(obj, callback)
}
