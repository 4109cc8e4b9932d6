package soundfont

import "math"

type genOp uint16

// Generator operators used by the loader. Unlisted operators are parsed and
// ignored.
const (
	genStartAddrsOffset           genOp = 0
	genEndAddrsOffset             genOp = 1
	genStartloopAddrsOffset       genOp = 2
	genEndloopAddrsOffset         genOp = 3
	genStartAddrsCoarseOffset     genOp = 4
	genEndAddrsCoarseOffset       genOp = 12
	genPan                        genOp = 17
	genDelayVolEnv                genOp = 33
	genAttackVolEnv               genOp = 34
	genHoldVolEnv                 genOp = 35
	genDecayVolEnv                genOp = 36
	genSustainVolEnv              genOp = 37
	genReleaseVolEnv              genOp = 38
	genInstrument                 genOp = 41
	genKeyRange                   genOp = 43
	genVelRange                   genOp = 44
	genStartloopAddrsCoarseOffset genOp = 45
	genKeynum                     genOp = 46
	genVelocity                   genOp = 47
	genInitialAttenuation         genOp = 48
	genEndloopAddrsCoarseOffset   genOp = 50
	genCoarseTune                 genOp = 51
	genFineTune                   genOp = 52
	genSampleID                   genOp = 53
	genSampleModes                genOp = 54
	genScaleTuning                genOp = 56
	genExclusiveClass             genOp = 57
	genOverridingRootKey          genOp = 58

	genCount = 61
)

// instrumentOnly generators are not valid at preset level and are never
// added from a preset zone.
var instrumentOnly = map[genOp]bool{
	genStartAddrsOffset:           true,
	genEndAddrsOffset:             true,
	genStartloopAddrsOffset:       true,
	genEndloopAddrsOffset:         true,
	genStartAddrsCoarseOffset:     true,
	genEndAddrsCoarseOffset:       true,
	genStartloopAddrsCoarseOffset: true,
	genEndloopAddrsCoarseOffset:   true,
	genKeynum:                     true,
	genVelocity:                   true,
	genSampleModes:                true,
	genExclusiveClass:             true,
	genOverridingRootKey:          true,
}

// zone is the set of generators of one bag.
type zone struct {
	set  [genCount]bool
	vals [genCount]uint16
}

func (z *zone) put(g generator) {
	if int(g.op) >= genCount {
		return
	}
	z.set[g.op] = true
	z.vals[g.op] = g.amount
}

func (z *zone) has(op genOp) bool { return z.set[op] }

// value returns the signed amount of op, or def when it is not set.
func (z *zone) value(op genOp, def int) int {
	if !z.set[op] {
		return def
	}
	return int(int16(z.vals[op]))
}

// span returns the lo/hi bytes of a range generator.
func (z *zone) span(op genOp) (lo, hi int, ok bool) {
	if !z.set[op] {
		return 0, 127, false
	}
	v := z.vals[op]
	return int(v & 0xff), int(v >> 8), true
}

// overlay copies every generator set in src over z.
func (z *zone) overlay(src *zone) {
	for i := range src.set {
		if src.set[i] {
			z.set[i] = true
			z.vals[i] = src.vals[i]
		}
	}
}

// instrumentDefaults are the values an instrument zone starts from.
func instrumentDefaults() zone {
	var z zone
	for op, v := range map[genOp]int16{
		genDelayVolEnv:   -12000,
		genAttackVolEnv:  -12000,
		genHoldVolEnv:    -12000,
		genDecayVolEnv:   -12000,
		genReleaseVolEnv: -12000,
		genScaleTuning:   100,
	} {
		z.set[op] = true
		z.vals[op] = uint16(v)
	}
	return z
}

// timecentsToSeconds converts an envelope time generator.
func timecentsToSeconds(tc int) float64 {
	if tc <= -32768 {
		return 0
	}
	tc = min(max(tc, -12000), 8000)
	return math.Exp2(float64(tc) / 1200)
}

// centibelsToGain converts an attenuation in centibels to a linear gain.
func centibelsToGain(cb int) float64 {
	return math.Pow(10, -float64(cb)/200)
}
