package soundfont

import (
	"encoding/binary"
	"fmt"
)

type chunk struct {
	id   string
	data []byte
}

// readChunks splits data into consecutive RIFF chunks. Odd-sized chunks are
// followed by one pad byte.
func readChunks(data []byte) ([]chunk, error) {
	var out []chunk
	for pos := 0; pos < len(data); {
		if len(data)-pos < 8 {
			return nil, fmt.Errorf("%w: truncated chunk header at %d", ErrMalformed, pos)
		}
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8
		if size < 0 || size > len(data)-start {
			return nil, fmt.Errorf("%w: chunk %q overruns its parent", ErrMalformed, id)
		}
		out = append(out, chunk{id: id, data: data[start : start+size]})
		pos = start + size
		if size%2 == 1 {
			pos++
		}
	}
	return out, nil
}

// list opens a RIFF or LIST chunk with the given form type and returns its
// children.
func (c chunk) list(id, form string) ([]chunk, error) {
	if c.id != id {
		return nil, fmt.Errorf("%w: expected %s chunk, got %q", ErrMalformed, id, c.id)
	}
	if len(c.data) < 4 || string(c.data[:4]) != form {
		return nil, fmt.Errorf("%w: expected %s form", ErrMalformed, form)
	}
	return readChunks(c.data[4:])
}

// records checks a pdta sub-chunk and returns the number of fixed-size
// records it holds.
func (c chunk) records(id string, size int) (int, error) {
	if c.id != id {
		return 0, fmt.Errorf("%w: expected %s chunk, got %q", ErrMalformed, id, c.id)
	}
	if len(c.data)%size != 0 {
		return 0, fmt.Errorf("%w: %s size %d is not a multiple of %d", ErrMalformed, id, len(c.data), size)
	}
	return len(c.data) / size, nil
}

// cString trims a fixed-width, NUL padded name.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
