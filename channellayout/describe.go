package channellayout

import (
	"fmt"
	"io"
	"math/bits"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xaionaro-go/avrecode/types"
)

const describeInitialBufferSize = 64

// Describe returns the canonical name of the layout, in a form FromName
// accepts. It never truncates: the name is rendered into a small buffer
// first and, if it does not fit, into one of exactly the required size.
func (l Layout) Describe() (string, error) {
	var stackBuf [describeInitialBufferSize]byte
	needed, err := l.describeInto(stackBuf[:])
	if err != nil {
		return "", err
	}
	if needed <= len(stackBuf) {
		return string(stackBuf[:needed]), nil
	}

	buf := make([]byte, needed)
	written, err := l.describeInto(buf)
	if err != nil {
		return "", err
	}
	if written != needed {
		return "", types.ErrBug{Message: fmt.Sprintf("the layout description changed its size between passes: %d != %d", written, needed)}
	}
	return string(buf), nil
}

// boundedWriter stores what fits into buf and counts everything.
type boundedWriter struct {
	buf []byte
	n   int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	if w.n < len(w.buf) {
		copy(w.buf[w.n:], p)
	}
	w.n += len(p)
	return len(p), nil
}

// describeInto renders the description into buf and returns its full length,
// which may exceed len(buf).
func (l Layout) describeInto(buf []byte) (int, error) {
	if l.IsZeroed() {
		return 0, fmt.Errorf("%w: the channel layout is not set", types.ErrInvalidData)
	}
	if err := l.Check(); err != nil {
		return 0, fmt.Errorf("%w: invalid channel layout: %w", types.ErrInvalidData, err)
	}
	w := &boundedWriter{buf: buf}
	l.writeDescription(w)
	return w.n, nil
}

func (l Layout) writeDescription(w io.Writer) {
	switch l.order {
	case OrderUnspecified:
		fmt.Fprintf(w, "%d channels", l.nbChannels)
	case OrderAmbisonic:
		fmt.Fprintf(w, "ambisonic %d", l.AmbisonicOrder())
		if l.mask != 0 {
			io.WriteString(w, "+")
			FromMask(l.mask).writeDescription(w)
		}
	case OrderNative:
		if name, ok := presetByMask(l.mask); ok {
			io.WriteString(w, name)
			return
		}
		l.writeChannelList(w)
	case OrderCustom:
		if native, ok := l.asNative(); ok {
			native.writeDescription(w)
			return
		}
		l.writeChannelList(w)
	}
}

func (l Layout) writeChannelList(w io.Writer) {
	fmt.Fprintf(w, "%d channels (", l.nbChannels)
	for idx := 0; idx < l.nbChannels; idx++ {
		if idx > 0 {
			io.WriteString(w, "+")
		}
		io.WriteString(w, l.ChannelAt(idx).Name())
		if l.order == OrderCustom && l.custom[idx].Name != "" {
			io.WriteString(w, "@"+l.custom[idx].Name)
		}
	}
	io.WriteString(w, ")")
}

// asNative converts an unlabeled custom layout in native order.
func (l Layout) asNative() (Layout, bool) {
	var mask uint64
	prev := ChannelNone
	for _, c := range l.custom {
		if c.Name != "" || !c.ID.IsNative() || c.ID <= prev {
			return Layout{}, false
		}
		mask |= 1 << uint(c.ID)
		prev = c.ID
	}
	if bits.OnesCount64(mask) != l.nbChannels {
		return Layout{}, false
	}
	return FromMask(mask), true
}

func (l Layout) String() string {
	s, err := l.Describe()
	if err != nil {
		return "unknown"
	}
	return s
}

// GoString is used by %#v, and so by spew-like dumps.
func (l Layout) GoString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "channellayout.Layout{order: %s, channels: %d", l.order, l.nbChannels)
	switch l.order {
	case OrderNative, OrderAmbisonic:
		fmt.Fprintf(&b, ", mask: 0x%x", l.mask)
	case OrderCustom:
		fmt.Fprintf(&b, ", custom: %v", l.custom)
	}
	b.WriteString("}")
	return b.String()
}

func (l Layout) MarshalText() ([]byte, error) {
	if l.IsZeroed() {
		return []byte{}, nil
	}
	s, err := l.Describe()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (l *Layout) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*l = Layout{}
		return nil
	}
	v, err := FromName(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l Layout) MarshalYAML() (any, error) {
	b, err := l.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Layout) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("unable to decode a channel layout: %w", err)
	}
	return l.UnmarshalText([]byte(s))
}
