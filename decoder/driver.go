package decoder

import (
	"github.com/justapithecus/jxlframe/engine"
)

// phase is the driver's position in the event protocol.
type phase int

const (
	// phaseHeaders reads basic info, the color profile and leading boxes up
	// to the first frame header.
	phaseHeaders phase = iota
	// phaseEnumerate skips every remaining frame to count them.
	phaseEnumerate
	// phaseSeek advances to the next frame that needs an output buffer.
	phaseSeek
	// phaseRender waits for the attached output buffer to be filled.
	phaseRender
)

var phaseOps = [...]string{
	phaseHeaders:   "read_headers",
	phaseEnumerate: "count_frames",
	phaseSeek:      "seek_frame",
	phaseRender:    "render_frame",
}

func (p phase) String() string {
	return phaseOps[p]
}

// action is the side effect a step asks the decoder to perform.
type action int

const (
	actNone action = iota
	actBasicInfo
	actColorProfile
	actFrameHeader
	actSkipFrame
	actOutputNeeded
	actFrameReady
	actBox
	actBoxGrow
	actDone
	actTruncated
	actFail
)

// step is the outcome of one engine status in one phase.
type step struct {
	next  phase
	act   action
	yield bool
}

// transition maps (phase, status) to the next step. It is pure: the decoder
// performs the action, the table only names it. Statuses a phase does not
// expect fail instead of looping.
func transition(p phase, s engine.Status) step {
	switch s {
	case engine.StatusNeedMoreInput:
		// Input is always fed whole and closed, so more input never comes.
		return step{next: p, act: actTruncated, yield: true}
	case engine.StatusError:
		return step{next: p, act: actFail, yield: true}
	}

	switch p {
	case phaseHeaders:
		switch s {
		case engine.StatusBasicInfo:
			return step{next: p, act: actBasicInfo}
		case engine.StatusColorEncoding:
			return step{next: p, act: actColorProfile}
		case engine.StatusBox:
			return step{next: p, act: actBox}
		case engine.StatusBoxNeedMoreOutput:
			return step{next: p, act: actBoxGrow}
		case engine.StatusFrame:
			return step{next: phaseSeek, act: actFrameHeader, yield: true}
		case engine.StatusSuccess:
			return step{next: p, act: actDone, yield: true}
		}

	case phaseEnumerate:
		switch s {
		case engine.StatusNeedImageOutBuffer:
			return step{next: p, act: actSkipFrame}
		case engine.StatusFrame, engine.StatusFullImage, engine.StatusBasicInfo, engine.StatusColorEncoding:
			return step{next: p, act: actNone}
		case engine.StatusBox:
			return step{next: p, act: actBox}
		case engine.StatusBoxNeedMoreOutput:
			return step{next: p, act: actBoxGrow}
		case engine.StatusSuccess:
			return step{next: phaseSeek, act: actDone, yield: true}
		}

	case phaseSeek:
		switch s {
		case engine.StatusBasicInfo, engine.StatusColorEncoding:
			// Re-emitted after a rewind; the first values are kept.
			return step{next: p, act: actNone}
		case engine.StatusFrame:
			return step{next: p, act: actFrameHeader}
		case engine.StatusNeedImageOutBuffer:
			return step{next: phaseRender, act: actOutputNeeded, yield: true}
		case engine.StatusBox:
			return step{next: p, act: actBox}
		case engine.StatusBoxNeedMoreOutput:
			return step{next: p, act: actBoxGrow}
		case engine.StatusSuccess:
			return step{next: p, act: actDone, yield: true}
		}

	case phaseRender:
		if s == engine.StatusFullImage {
			return step{next: phaseSeek, act: actFrameReady, yield: true}
		}
	}
	return step{next: p, act: actFail, yield: true}
}

// run drives the engine from phase p until a step yields, performing each
// step's action. It returns the status that stopped the loop.
func (d *Decoder) run(p phase) (engine.Status, error) {
	eng := d.res.eng
	for {
		status := eng.ProcessInput()
		d.status = status
		if d.meta.active && status != engine.StatusBoxNeedMoreOutput {
			d.finishBox()
		}

		st := transition(p, status)
		if err := d.apply(p, st.act, status); err != nil {
			return status, err
		}
		p = st.next
		if st.yield {
			return status, nil
		}
	}
}

func (d *Decoder) apply(p phase, act action, status engine.Status) error {
	eng := d.res.eng
	switch act {
	case actNone, actOutputNeeded, actFrameReady:
		return nil

	case actBasicInfo:
		if d.haveInfo {
			return nil
		}
		bi, err := eng.BasicInfo()
		if err != nil {
			return newDecodeError(ErrMalformedInput, "basic_info", status, err)
		}
		d.setBasicInfo(bi)
		return nil

	case actColorProfile:
		return d.readColorProfile(status)

	case actFrameHeader:
		fh, err := eng.FrameHeader()
		if err != nil {
			return newDecodeError(ErrMalformedInput, "frame_header", status, err)
		}
		d.header = fh
		return nil

	case actSkipFrame:
		if err := eng.SkipCurrentFrame(); err != nil {
			return newDecodeError(ErrFrameSkipFailed, p.String(), status, err)
		}
		d.counted++
		d.coll.IncFrameSkipped()
		return nil

	case actBox:
		return d.beginBox(status)

	case actBoxGrow:
		return d.growBox(status)

	case actDone:
		d.meta.sealed = true
		return nil

	case actTruncated:
		return newDecodeError(ErrIOExhausted, p.String(), status, nil)
	}
	return newDecodeError(ErrMalformedInput, p.String(), status, nil)
}
