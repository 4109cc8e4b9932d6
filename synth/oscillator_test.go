package synth

import (
	"math"
	"testing"
)

func TestWrapLoopKeepsFraction(t *testing.T) {
	if got := wrapLoop(200.3, 100, 200); math.Abs(got-100.3) > 1e-9 {
		t.Fatalf("wrapLoop(200.3) = %f, want 100.3", got)
	}
	if got := wrapLoop(200, 100, 200); got != 100 {
		t.Fatalf("wrapLoop(200) = %f, want 100", got)
	}
}

func TestContinuousLoopDoesNotDrift(t *testing.T) {
	const outRate = 40000
	p := testParam(0, 300, 50000) // 1.25 frames per output frame
	p.Loop = Loop{Mode: LoopContinuous, Start: 100, End: 200}
	v := NewVoice(testRegion(p, sinePCM(300, 100)), outRate)
	v.NoteOn(60, 1)

	left := make([]float32, testBuffer)
	right := make([]float32, testBuffer)
	frames := 0
	// 10,000 passes through the 100-frame loop.
	for frames*5/4 < 100+10000*100 {
		v.Process(left, right)
		frames += testBuffer
		if v.cursor < 0 || (frames*5/4 >= 200 && (v.cursor < 100 || v.cursor >= 200)) {
			t.Fatalf("cursor escaped loop: %f after %d frames", v.cursor, frames)
		}
	}
	if !v.IsPlaying() {
		t.Fatalf("looping voice stopped")
	}
	unwrapped := 1.25 * float64(frames)
	want := 100 + math.Mod(unwrapped-100, 100)
	if math.Abs(v.cursor-want) > 1e-9 {
		t.Fatalf("loop drift: cursor=%.12f want=%.12f", v.cursor, want)
	}
}

func TestSustainLoopPlaysOutAfterNoteOff(t *testing.T) {
	p := testParam(0, 400, testRate)
	p.Loop = Loop{Mode: LoopSustain, Start: 100, End: 200}
	p.Envelope.ReleaseTime = 10
	v := NewVoice(testRegion(p, constPCM(400, 0.25)), testRate)
	v.NoteOn(60, 1)

	left := make([]float32, testBuffer)
	right := make([]float32, testBuffer)
	for i := 0; i < 20; i++ {
		v.Process(left, right)
	}
	if !v.IsPlaying() {
		t.Fatalf("sustain loop should keep the voice alive before note-off")
	}
	v.NoteOff()
	v.Process(left, right)
	if v.IsPlaying() {
		t.Fatalf("voice should run off the sample end after note-off, cursor=%f", v.cursor)
	}
}

func TestUnloopedVoiceFinishesAtSampleEnd(t *testing.T) {
	p := testParam(0, 120, testRate)
	v := NewVoice(testRegion(p, constPCM(120, 1)), testRate)
	v.NoteOn(60, 1)
	left := make([]float32, testBuffer)
	right := make([]float32, testBuffer)
	v.Process(left, right)
	if v.IsPlaying() {
		t.Fatalf("voice should be finished")
	}
	if left[119] == 0 || left[120] != 0 {
		t.Fatalf("expected output up to frame 119 only: l[119]=%f l[120]=%f", left[119], left[120])
	}
}

func TestVoiceGainAndConstantPowerPan(t *testing.T) {
	p := testParam(0, 1000, testRate)
	v := NewVoice(testRegion(p, constPCM(1000, 0.5)), testRate)
	v.NoteOn(60, 1)

	left := make([]float32, 64)
	right := make([]float32, 64)
	v.Process(left, right)
	want := 0.5 * math.Cos(math.Pi/4)
	if math.Abs(float64(left[10])-want) > 1e-6 || math.Abs(float64(right[10])-want) > 1e-6 {
		t.Fatalf("center pan mismatch: L=%f R=%f want %f", left[10], right[10], want)
	}

	v.pan = -1
	for i := range left {
		left[i], right[i] = 0, 0
	}
	v.Process(left, right)
	if math.Abs(float64(right[5])) > 1e-6 || math.Abs(float64(left[5])-0.5) > 1e-6 {
		t.Fatalf("hard left mismatch: L=%f R=%f", left[5], right[5])
	}

	v.pan = 0
	v.velocity = 0.5
	v.volume = 0.5
	for i := range left {
		left[i], right[i] = 0, 0
	}
	v.Process(left, right)
	want = 0.5 * 0.0625 * math.Cos(math.Pi/4)
	if math.Abs(float64(left[3])-want) > 1e-6 {
		t.Fatalf("(velocity*volume)^2 scaling mismatch: got %f want %f", left[3], want)
	}
}

func TestVoiceMixesAdditively(t *testing.T) {
	p := testParam(0, 1000, testRate)
	a := NewVoice(testRegion(p, constPCM(1000, 0.25)), testRate)
	b := NewVoice(testRegion(p, constPCM(1000, 0.25)), testRate)
	a.NoteOn(60, 1)
	b.NoteOn(60, 1)

	left := constPCM(32, 0.1)
	right := constPCM(32, 0.1)
	a.Process(left, right)
	b.Process(left, right)
	want := 0.1 + 2*0.25*math.Cos(math.Pi/4)
	if math.Abs(float64(left[0])-want) > 1e-6 {
		t.Fatalf("expected summed output %f, got %f", want, left[0])
	}
}

func TestVoicePitchSetsPlaybackSpeed(t *testing.T) {
	p := testParam(0, 10000, 22050)
	v := NewVoice(testRegion(p, constPCM(10000, 0)), testRate)
	v.NoteOn(72, 1)
	left := make([]float32, 100)
	right := make([]float32, 100)
	v.Process(left, right)
	// One octave up at half the native rate advances one frame per output frame.
	if math.Abs(v.cursor-100) > 1e-9 {
		t.Fatalf("cursor=%f, want 100", v.cursor)
	}
}

func TestVoiceToleratesRegionPastPCM(t *testing.T) {
	p := testParam(0, 500, testRate) // claims more frames than provided
	v := NewVoice(testRegion(p, constPCM(50, 1)), testRate)
	v.NoteOn(60, 1)
	left := make([]float32, testBuffer)
	right := make([]float32, testBuffer)
	v.Process(left, right)
	if left[100] != 0 {
		t.Fatalf("reads past the PCM must be silent, got %f", left[100])
	}
}
