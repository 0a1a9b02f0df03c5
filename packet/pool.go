// pool.go implements a pool for reusing Packet objects.

package packet

import (
	"github.com/xaionaro-go/avrecode/pool"
)

var Pool = pool.NewPool(
	New,
	func(p *Packet) { p.Unref() },
	nil,
)

func CloneAsReferenced(src *Packet) *Packet {
	dst := Pool.Get()
	dst.Ref(src)
	return dst
}

func CloneAsWritable(src *Packet) *Packet {
	dst := CloneAsReferenced(src)
	dst.MakeWritable()
	return dst
}
