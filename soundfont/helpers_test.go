package soundfont

import (
	"encoding/binary"
)

type testGen struct {
	op     genOp
	amount uint16
}

func gen(op genOp, v int) testGen { return testGen{op: op, amount: uint16(int16(v))} }

func span(op genOp, lo, hi int) testGen {
	return testGen{op: op, amount: uint16(lo) | uint16(hi)<<8}
}

type testPreset struct {
	name    string
	bank    int
	program int
	zones   [][]testGen
}

type testInstrument struct {
	name  string
	zones [][]testGen
}

type testSample struct {
	name       string
	pcm        []int16
	loopStart  int // relative to the sample start
	loopEnd    int
	rate       int
	root       int
	correction int
}

type testBank struct {
	name        string
	presets     []testPreset
	instruments []testInstrument
	samples     []testSample
	pmod        []byte // nil means a single terminal record
}

var le = binary.LittleEndian

func riffChunk(id string, data []byte) []byte {
	out := append([]byte(id), le.AppendUint32(nil, uint32(len(data)))...)
	out = append(out, data...)
	if len(data)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func riffList(id, form string, children ...[]byte) []byte {
	body := []byte(form)
	for _, c := range children {
		body = append(body, c...)
	}
	return riffChunk(id, body)
}

func name20(s string) []byte {
	b := make([]byte, 20)
	copy(b, s)
	return b
}

// zoneRecords encodes zones as bag and generator records, each list closed
// by a terminal record.
func zoneRecords(all [][][]testGen) (bagIndex []int, bags, gens []byte) {
	nbag, ngen := 0, 0
	for _, zones := range all {
		bagIndex = append(bagIndex, nbag)
		for _, z := range zones {
			bags = le.AppendUint16(bags, uint16(ngen))
			bags = le.AppendUint16(bags, 0)
			for _, g := range z {
				gens = le.AppendUint16(gens, uint16(g.op))
				gens = le.AppendUint16(gens, g.amount)
				ngen++
			}
			nbag++
		}
	}
	bagIndex = append(bagIndex, nbag)
	bags = le.AppendUint16(bags, uint16(ngen))
	bags = le.AppendUint16(bags, 0)
	gens = append(gens, 0, 0, 0, 0)
	return bagIndex, bags, gens
}

func (b testBank) bytes() []byte {
	var smpl, shdr []byte
	pos := 0
	for _, s := range b.samples {
		for _, v := range s.pcm {
			smpl = le.AppendUint16(smpl, uint16(v))
		}
		// 46 zero frames follow every sample.
		smpl = append(smpl, make([]byte, 46*2)...)
		start, end := pos, pos+len(s.pcm)
		shdr = append(shdr, name20(s.name)...)
		shdr = le.AppendUint32(shdr, uint32(start))
		shdr = le.AppendUint32(shdr, uint32(end))
		shdr = le.AppendUint32(shdr, uint32(start+s.loopStart))
		shdr = le.AppendUint32(shdr, uint32(start+s.loopEnd))
		shdr = le.AppendUint32(shdr, uint32(s.rate))
		shdr = append(shdr, byte(s.root), byte(int8(s.correction)))
		shdr = le.AppendUint16(shdr, 0)
		shdr = le.AppendUint16(shdr, 1)
		pos = end + 46
	}
	shdr = append(shdr, name20("EOS")...)
	shdr = append(shdr, make([]byte, 26)...)

	var pzones [][][]testGen
	for _, p := range b.presets {
		pzones = append(pzones, p.zones)
	}
	pidx, pbag, pgen := zoneRecords(pzones)
	var phdr []byte
	for i, p := range b.presets {
		phdr = append(phdr, name20(p.name)...)
		phdr = le.AppendUint16(phdr, uint16(p.program))
		phdr = le.AppendUint16(phdr, uint16(p.bank))
		phdr = le.AppendUint16(phdr, uint16(pidx[i]))
		phdr = append(phdr, make([]byte, 12)...)
	}
	phdr = append(phdr, name20("EOP")...)
	phdr = append(phdr, 0, 0, 0, 0)
	phdr = le.AppendUint16(phdr, uint16(pidx[len(pidx)-1]))
	phdr = append(phdr, make([]byte, 12)...)

	var izones [][][]testGen
	for _, in := range b.instruments {
		izones = append(izones, in.zones)
	}
	iidx, ibag, igen := zoneRecords(izones)
	var inst []byte
	for i, in := range b.instruments {
		inst = append(inst, name20(in.name)...)
		inst = le.AppendUint16(inst, uint16(iidx[i]))
	}
	inst = append(inst, name20("EOI")...)
	inst = le.AppendUint16(inst, uint16(iidx[len(iidx)-1]))

	pmod := b.pmod
	if pmod == nil {
		pmod = make([]byte, 10)
	}
	ifil := le.AppendUint16(le.AppendUint16(nil, 2), 1)
	return riffList("RIFF", "sfbk",
		riffList("LIST", "INFO",
			riffChunk("ifil", ifil),
			riffChunk("INAM", append([]byte(b.name), 0)),
		),
		riffList("LIST", "sdta", riffChunk("smpl", smpl)),
		riffList("LIST", "pdta",
			riffChunk("phdr", phdr),
			riffChunk("pbag", pbag),
			riffChunk("pmod", pmod),
			riffChunk("pgen", pgen),
			riffChunk("inst", inst),
			riffChunk("ibag", ibag),
			riffChunk("imod", make([]byte, 10)),
			riffChunk("igen", igen),
			riffChunk("shdr", shdr),
		),
	)
}

func ramp(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16((i % 50) * 600)
	}
	return out
}
