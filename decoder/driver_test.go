package decoder

import (
	"testing"

	"github.com/justapithecus/jxlframe/engine"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		phase  phase
		status engine.Status
		want   step
	}{
		{phaseHeaders, engine.StatusBasicInfo, step{phaseHeaders, actBasicInfo, false}},
		{phaseHeaders, engine.StatusColorEncoding, step{phaseHeaders, actColorProfile, false}},
		{phaseHeaders, engine.StatusBox, step{phaseHeaders, actBox, false}},
		{phaseHeaders, engine.StatusBoxNeedMoreOutput, step{phaseHeaders, actBoxGrow, false}},
		{phaseHeaders, engine.StatusFrame, step{phaseSeek, actFrameHeader, true}},
		{phaseHeaders, engine.StatusSuccess, step{phaseHeaders, actDone, true}},
		{phaseHeaders, engine.StatusNeedImageOutBuffer, step{phaseHeaders, actFail, true}},
		{phaseHeaders, engine.StatusFullImage, step{phaseHeaders, actFail, true}},

		{phaseEnumerate, engine.StatusNeedImageOutBuffer, step{phaseEnumerate, actSkipFrame, false}},
		{phaseEnumerate, engine.StatusFrame, step{phaseEnumerate, actNone, false}},
		{phaseEnumerate, engine.StatusBox, step{phaseEnumerate, actBox, false}},
		{phaseEnumerate, engine.StatusSuccess, step{phaseSeek, actDone, true}},

		{phaseSeek, engine.StatusBasicInfo, step{phaseSeek, actNone, false}},
		{phaseSeek, engine.StatusColorEncoding, step{phaseSeek, actNone, false}},
		{phaseSeek, engine.StatusFrame, step{phaseSeek, actFrameHeader, false}},
		{phaseSeek, engine.StatusNeedImageOutBuffer, step{phaseRender, actOutputNeeded, true}},
		{phaseSeek, engine.StatusSuccess, step{phaseSeek, actDone, true}},
		{phaseSeek, engine.StatusFullImage, step{phaseSeek, actFail, true}},

		{phaseRender, engine.StatusFullImage, step{phaseSeek, actFrameReady, true}},
		{phaseRender, engine.StatusFrame, step{phaseRender, actFail, true}},
		{phaseRender, engine.StatusBox, step{phaseRender, actFail, true}},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String()+"/"+tt.status.String(), func(t *testing.T) {
			if got := transition(tt.phase, tt.status); got != tt.want {
				t.Errorf("transition = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransition_TerminalStatusesInEveryPhase(t *testing.T) {
	for _, p := range []phase{phaseHeaders, phaseEnumerate, phaseSeek, phaseRender} {
		if got := transition(p, engine.StatusNeedMoreInput); got.act != actTruncated || !got.yield {
			t.Errorf("%s: need_more_input = %+v, want truncated yield", p, got)
		}
		if got := transition(p, engine.StatusError); got.act != actFail || !got.yield {
			t.Errorf("%s: error = %+v, want fail yield", p, got)
		}
		if got := transition(p, engine.Status(42)); got.act != actFail || !got.yield {
			t.Errorf("%s: unknown status = %+v, want fail yield", p, got)
		}
	}
}

// Every non-yielding step must be an action that lets the engine make
// progress; otherwise the driver would spin.
func TestTransition_NoSilentLoopsOnUnexpected(t *testing.T) {
	for _, p := range []phase{phaseHeaders, phaseEnumerate, phaseSeek, phaseRender} {
		for s := engine.StatusSuccess; s <= engine.StatusBoxNeedMoreOutput; s++ {
			got := transition(p, s)
			if got.act == actFail && !got.yield {
				t.Errorf("%s/%s: fail without yield", p, s)
			}
		}
	}
}
