package filmgrade

import (
	"encoding/binary"
	"sort"
)

var tiffBigEndian = []byte{0x4D, 0x4D, 0x00, 0x2A}

const (
	tiffHeaderSize = 8
	ifdEntrySize   = 12
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte // encoded values in tiff byte order
}

// ifdBuilder collects the entries of one image file directory.
// Values longer than 4 bytes go to a data area right after the directory.
type ifdBuilder struct {
	entries []ifdEntry
}

var tiffOrder = binary.BigEndian

func (b *ifdBuilder) add(e ifdEntry) {
	for i := range b.entries {
		if b.entries[i].tag == e.tag {
			b.entries[i] = e
			return
		}
	}
	b.entries = append(b.entries, e)
}

func (b *ifdBuilder) addLong(tag uint16, v uint32) {
	b.add(ifdEntry{tag: tag, typ: typeLong, count: 1, data: tiffOrder.AppendUint32(nil, v)})
}

func (b *ifdBuilder) addShort(tag uint16, v uint16) {
	b.add(ifdEntry{tag: tag, typ: typeShort, count: 1, data: tiffOrder.AppendUint16(nil, v)})
}

func (b *ifdBuilder) addRational(tag uint16, num, den uint32) {
	buf := tiffOrder.AppendUint32(nil, num)
	b.add(ifdEntry{tag: tag, typ: typeRational, count: 1, data: tiffOrder.AppendUint32(buf, den)})
}

func (b *ifdBuilder) empty() bool {
	return len(b.entries) == 0
}

// size is the byte length of the directory and its data area.
func (b *ifdBuilder) size() int {
	n := 2 + len(b.entries)*ifdEntrySize + 4
	for _, e := range b.entries {
		if len(e.data) > 4 {
			n += len(e.data) + len(e.data)%2
		}
	}
	return n
}

// appendTo serializes the directory at offset (relative to the tiff header) with the given
// next-IFD pointer.
func (b *ifdBuilder) appendTo(out []byte, offset, next uint32) []byte {
	sort.Slice(b.entries, func(i, j int) bool { return b.entries[i].tag < b.entries[j].tag })

	dataOffset := offset + uint32(2+len(b.entries)*ifdEntrySize+4)
	var area []byte

	out = tiffOrder.AppendUint16(out, uint16(len(b.entries)))
	for _, e := range b.entries {
		out = tiffOrder.AppendUint16(out, e.tag)
		out = tiffOrder.AppendUint16(out, e.typ)
		out = tiffOrder.AppendUint32(out, e.count)
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			out = append(out, inline[:]...)
			continue
		}
		out = tiffOrder.AppendUint32(out, dataOffset+uint32(len(area)))
		area = append(area, e.data...)
		if len(area)%2 == 1 {
			area = append(area, 0)
		}
	}
	out = tiffOrder.AppendUint32(out, next)
	return append(out, area...)
}
