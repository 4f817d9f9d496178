// Package encoding packs a section's slot layout into a short string for
// the sort journal.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"sortcraft.ai/internal/sim/container"
)

const (
	EmptySlot   uint16 = 0
	UnknownItem uint16 = 0xFFFF
)

// LayoutIDs maps every slot to its palette index plus one. Empty slots are
// EmptySlot and ids the palette does not know are UnknownItem.
func LayoutIDs(slots []container.Stack, index map[string]uint16) []uint16 {
	out := make([]uint16, len(slots))
	for i, st := range slots {
		if st.Empty() {
			continue
		}
		p, ok := index[st.ID]
		if !ok || p >= UnknownItem-1 {
			out[i] = UnknownItem
			continue
		}
		out[i] = p + 1
	}
	return out
}

// EncodeLayout is LayoutIDs followed by EncodeRuns.
func EncodeLayout(slots []container.Stack, index map[string]uint16) string {
	return EncodeRuns(LayoutIDs(slots, index))
}

// EncodeRuns writes base64((value, run) varint pairs). A sorted inventory
// is mostly long runs, so the result stays short.
func EncodeRuns(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	for i := 0; i < len(ids); {
		v := ids[i]
		j := i + 1
		for j < len(ids) && ids[j] == v {
			j++
		}
		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(j-i))
		buf.Write(tmp[:n])
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRuns(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("layout: bad value at byte %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("layout: bad run at byte %d", i)
		}
		i += n
		if v > 0xFFFF {
			return nil, fmt.Errorf("layout: value %d out of range", v)
		}
		if run == 0 || run > 1<<16 {
			return nil, fmt.Errorf("layout: run %d out of range", run)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(v))
		}
	}
	return out, nil
}
