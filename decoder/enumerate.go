package decoder

import "fmt"

// countFrames skips every frame from the current position to the end of the
// stream, then rewinds the engine to the start. Metadata boxes met on the
// way are extracted.
func (d *Decoder) countFrames() (int64, error) {
	d.counted = 0
	if _, err := d.run(phaseEnumerate); err != nil {
		return 0, err
	}
	if err := d.rewindEngine(); err != nil {
		return 0, err
	}
	d.coll.IncEnumerationPass()
	d.log.Debug("frames counted", map[string]any{"frame_count": d.counted})
	return d.counted, nil
}

// rewindEngine restarts the engine and feeds the owned input again.
func (d *Decoder) rewindEngine() error {
	d.res.eng.Rewind()
	d.meta.abort()
	d.status = statusNone
	d.coll.IncRewind()
	return d.feed()
}

// feed hands the whole input to the engine as one closed segment.
func (d *Decoder) feed() error {
	if err := d.res.eng.SetInput(d.res.bufs.Input()); err != nil {
		return fmt.Errorf("set input: %w", err)
	}
	d.res.eng.CloseInput()
	return nil
}
