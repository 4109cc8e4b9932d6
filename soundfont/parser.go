// Package soundfont reads SoundFont 2 banks and turns them into synth
// sample events.
package soundfont

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrMalformed reports a file that does not follow the sfbk layout.
var ErrMalformed = errors.New("soundfont: malformed file")

// pdta record sizes in bytes.
const (
	phdrSize = 38
	pbagSize = 4
	pmodSize = 10
	pgenSize = 4
	instSize = 22
	ibagSize = 4
	imodSize = 10
	igenSize = 4
	shdrSize = 46
)

type presetHeader struct {
	name     string
	program  int
	bank     int
	bagIndex int
}

type instrumentHeader struct {
	name     string
	bagIndex int
}

type bag struct {
	genIndex int
}

type generator struct {
	op     genOp
	amount uint16
}

// SampleHeader describes one sample in the bank. Loop points are relative
// to the sample start.
type SampleHeader struct {
	Name            string
	Start, End      int
	LoopStart       int
	LoopEnd         int
	SampleRate      int
	OriginalPitch   int
	PitchCorrection int
	Type            int
}

// File is a parsed SoundFont bank.
type File struct {
	Name    string
	Version [2]int

	presets      []presetHeader
	presetBagEnd int
	pbags        []bag
	pgens        []generator
	instruments  []instrumentHeader
	instBagEnd   int
	ibags        []bag
	igens        []generator
	samples      []SampleHeader
	smpl         []byte
}

// Load reads and parses a SoundFont file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a complete sfbk RIFF file.
func Parse(data []byte) (*File, error) {
	top, err := readChunks(data)
	if err != nil {
		return nil, err
	}
	if len(top) != 1 {
		return nil, fmt.Errorf("%w: expected one RIFF chunk, got %d", ErrMalformed, len(top))
	}
	lists, err := top[0].list("RIFF", "sfbk")
	if err != nil {
		return nil, err
	}
	if len(lists) != 3 {
		return nil, fmt.Errorf("%w: sfbk holds %d lists, want 3", ErrMalformed, len(lists))
	}

	f := &File{}
	info, err := lists[0].list("LIST", "INFO")
	if err != nil {
		return nil, err
	}
	f.parseInfo(info)

	sdta, err := lists[1].list("LIST", "sdta")
	if err != nil {
		return nil, err
	}
	for _, c := range sdta {
		if c.id == "smpl" {
			f.smpl = c.data
			break
		}
	}

	pdta, err := lists[2].list("LIST", "pdta")
	if err != nil {
		return nil, err
	}
	if err := f.parsePdta(pdta); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) parseInfo(info []chunk) {
	for _, c := range info {
		switch c.id {
		case "ifil":
			if len(c.data) >= 4 {
				f.Version = [2]int{
					int(binary.LittleEndian.Uint16(c.data[0:])),
					int(binary.LittleEndian.Uint16(c.data[2:])),
				}
			}
		case "INAM":
			f.Name = cString(c.data)
		}
	}
}

func (f *File) parsePdta(pdta []chunk) error {
	if len(pdta) != 9 {
		return fmt.Errorf("%w: pdta holds %d chunks, want 9", ErrMalformed, len(pdta))
	}
	le := binary.LittleEndian

	n, err := pdta[0].records("phdr", phdrSize)
	if err != nil {
		return err
	}
	f.presetBagEnd = -1
	for i := 0; i < n; i++ {
		r := pdta[0].data[i*phdrSize:]
		h := presetHeader{
			name:     cString(r[:20]),
			program:  int(le.Uint16(r[20:])),
			bank:     int(le.Uint16(r[22:])),
			bagIndex: int(le.Uint16(r[24:])),
		}
		if h.name == "EOP" {
			f.presetBagEnd = h.bagIndex
			break
		}
		f.presets = append(f.presets, h)
	}

	if f.pbags, err = parseBags(pdta[1], "pbag", pbagSize); err != nil {
		return err
	}
	if _, err := pdta[2].records("pmod", pmodSize); err != nil {
		return err
	}
	if f.pgens, err = parseGenerators(pdta[3], "pgen", pgenSize); err != nil {
		return err
	}

	if n, err = pdta[4].records("inst", instSize); err != nil {
		return err
	}
	f.instBagEnd = -1
	for i := 0; i < n; i++ {
		r := pdta[4].data[i*instSize:]
		h := instrumentHeader{name: cString(r[:20]), bagIndex: int(le.Uint16(r[20:]))}
		if h.name == "EOI" {
			f.instBagEnd = h.bagIndex
			break
		}
		f.instruments = append(f.instruments, h)
	}

	if f.ibags, err = parseBags(pdta[5], "ibag", ibagSize); err != nil {
		return err
	}
	if _, err := pdta[6].records("imod", imodSize); err != nil {
		return err
	}
	if f.igens, err = parseGenerators(pdta[7], "igen", igenSize); err != nil {
		return err
	}

	if n, err = pdta[8].records("shdr", shdrSize); err != nil {
		return err
	}
	frames := len(f.smpl) / 2
	for i := 0; i < n; i++ {
		r := pdta[8].data[i*shdrSize:]
		h := SampleHeader{
			Name:            cString(r[:20]),
			Start:           int(le.Uint32(r[20:])),
			End:             int(le.Uint32(r[24:])),
			LoopStart:       int(le.Uint32(r[28:])),
			LoopEnd:         int(le.Uint32(r[32:])),
			SampleRate:      int(le.Uint32(r[36:])),
			OriginalPitch:   int(r[40]),
			PitchCorrection: int(int8(r[41])),
			Type:            int(le.Uint16(r[44:])),
		}
		if h.Name == "EOS" {
			break
		}
		if h.Start > h.End || h.End > frames {
			return fmt.Errorf("%w: sample %q spans %d..%d of %d frames", ErrMalformed, h.Name, h.Start, h.End, frames)
		}
		h.LoopStart -= h.Start
		h.LoopEnd -= h.Start
		f.samples = append(f.samples, h)
	}
	return nil
}

func parseBags(c chunk, id string, size int) ([]bag, error) {
	n, err := c.records(id, size)
	if err != nil {
		return nil, err
	}
	out := make([]bag, n)
	for i := range out {
		out[i].genIndex = int(binary.LittleEndian.Uint16(c.data[i*size:]))
	}
	return out, nil
}

func parseGenerators(c chunk, id string, size int) ([]generator, error) {
	n, err := c.records(id, size)
	if err != nil {
		return nil, err
	}
	out := make([]generator, n)
	for i := range out {
		r := c.data[i*size:]
		out[i] = generator{
			op:     genOp(binary.LittleEndian.Uint16(r)),
			amount: binary.LittleEndian.Uint16(r[2:]),
		}
	}
	return out, nil
}

// Samples returns the sample headers of the bank.
func (f *File) Samples() []SampleHeader { return f.samples }

// pcm returns the 16-bit frames of sample id scaled to [-1, 1].
func (f *File) pcm(id int) []float32 {
	h := f.samples[id]
	out := make([]float32, h.End-h.Start)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(f.smpl[(h.Start+i)*2:]))
		out[i] = float32(v) / 32767
	}
	return out
}
