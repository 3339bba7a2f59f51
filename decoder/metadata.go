package decoder

import (
	"fmt"

	"github.com/justapithecus/jxlframe/container"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/types"
)

// boxChunkSize is the initial box buffer size. It doubles on demand.
const boxChunkSize = 4096

// metadata holds the color profile and metadata boxes of a session, plus
// the state of the box currently being read.
type metadata struct {
	icc   []byte
	boxes map[types.BoxType][]byte

	// sealed is set once the stream was traversed to the end; boxes seen
	// again after a rewind are not re-extracted.
	sealed bool

	active   bool
	typ      types.BoxType
	view     []byte
	offset   int
	attached int
}

func (m *metadata) abort() {
	m.active = false
	m.view = nil
}

func (m *metadata) get(t types.BoxType) ([]byte, bool) {
	b, ok := m.boxes[t]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

func (d *Decoder) readColorProfile(status engine.Status) error {
	if d.meta.icc != nil {
		return nil
	}
	size, err := d.res.eng.ICCProfileSize()
	if err != nil {
		return newDecodeError(ErrMalformedInput, "icc_profile_size", status, err)
	}
	if size == 0 {
		return nil
	}
	icc := make([]byte, size)
	if err := d.res.eng.ICCProfile(icc); err != nil {
		return newDecodeError(ErrMalformedInput, "icc_profile", status, err)
	}
	d.meta.icc = icc
	return nil
}

// beginBox attaches the box buffer when the current box carries metadata.
func (d *Decoder) beginBox(status engine.Status) error {
	if d.meta.sealed {
		return nil
	}
	typ, err := d.res.eng.BoxType(true)
	if err != nil {
		return newDecodeError(ErrMalformedInput, "box_type", status, err)
	}
	if !typ.IsMetadata() && typ != types.BoxBrotli {
		return nil
	}

	box := d.res.bufs.Box()
	before := box.Allocations()
	view := box.Ensure(min(max(boxChunkSize, box.Cap()), d.cfg.maxBoxSize))
	if box.Allocations() != before {
		d.coll.IncBufferReallocation()
	}
	if err := d.res.eng.SetBoxBuffer(view); err != nil {
		return newDecodeError(ErrMalformedInput, "set_box_buffer", status, err)
	}
	d.meta.active = true
	d.meta.typ = typ
	d.meta.view = view
	d.meta.offset = 0
	d.meta.attached = len(view)
	return nil
}

// growBox doubles the box buffer up to the box size bound, keeping what was
// written, and re-attaches it at the write position.
func (d *Decoder) growBox(status engine.Status) error {
	if !d.meta.active {
		return newDecodeError(ErrMalformedInput, "box_grow", status, nil)
	}
	remaining := d.res.eng.ReleaseBoxBuffer()
	written := d.meta.offset + d.meta.attached - remaining
	if len(d.meta.view) >= d.cfg.maxBoxSize {
		typ := d.meta.typ
		d.meta.abort()
		return newDecodeError(ErrMalformedInput, "box_grow", status,
			fmt.Errorf("%s box: %w (%d bytes)", typ, container.ErrBoxTooLarge, d.cfg.maxBoxSize))
	}

	box := d.res.bufs.Box()
	before := box.Allocations()
	view := box.Grow(min(2*len(d.meta.view), d.cfg.maxBoxSize), written)
	if box.Allocations() != before {
		d.coll.IncBufferReallocation()
	}
	if err := d.res.eng.SetBoxBuffer(view[written:]); err != nil {
		return newDecodeError(ErrMalformedInput, "set_box_buffer", status, err)
	}
	d.meta.view = view
	d.meta.offset = written
	d.meta.attached = len(view) - written
	return nil
}

// finishBox releases the box buffer and stores an owned copy of the box.
// The last box of a type wins.
func (d *Decoder) finishBox() {
	remaining := d.res.eng.ReleaseBoxBuffer()
	n := min(max(d.meta.offset+d.meta.attached-remaining, 0), len(d.meta.view))
	data := append([]byte(nil), d.meta.view[:n]...)
	typ := d.meta.typ
	d.meta.abort()

	if typ == types.BoxBrotli {
		inner, out, err := container.DecompressBrob(data, d.cfg.maxBoxSize)
		if err != nil {
			d.log.Warn("dropping undecodable brob box", map[string]any{"error": err.Error()})
			return
		}
		if !inner.IsMetadata() {
			return
		}
		typ, data = inner, out
	}
	if typ == types.BoxExif {
		data = container.ExifPayload(data)
	}
	d.meta.boxes[typ] = data
	d.coll.IncBoxExtracted()
	d.log.Debug("metadata box extracted", map[string]any{"type": string(typ), "bytes": len(data)})
}
