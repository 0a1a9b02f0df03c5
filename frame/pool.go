// pool.go implements a pool for reusing Frame objects.

package frame

import (
	"github.com/xaionaro-go/avrecode/pool"
)

var Pool = pool.NewPool(
	New,
	func(f *Frame) { f.Unref() },
	nil,
)

func CloneAsReferenced(src *Frame) *Frame {
	dst := Pool.Get()
	dst.Ref(src)
	return dst
}
