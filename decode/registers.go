package decode

// RegisterFile identifies which register file a register-operand index
// refers to. The concrete numbering is local to this decoder and its
// descriptor tables, with one constraint the descriptor format pins:
// the ModR/M and ModReg register-file fields are 3 bits wide, so every
// file a descriptor names (RegFileGPL through RegFileMask) must keep a
// value below 8.
type RegisterFile uint8

const (
	RegFileGPL RegisterFile = iota // general-purpose, low/full name
	RegFileVec                     // XMM/YMM/ZMM vector file
	RegFileSeg                     // segment register
	RegFileCR                      // control register
	RegFileDR                      // debug register
	RegFileFPU                     // x87 stack register
	RegFileMMX                     // MMX register
	RegFileMask                    // AVX-512 opmask register (k0-k7)

	// Produced only by the byte-register reinterpretation fixup that
	// runs after operand decoding; never appears in a descriptor's
	// reg-file field.
	RegFileGPH
	// Sentinel file for the IP pseudo-register used as a memory base.
	RegFileIP
	// Sentinel meaning "no register file" (operand slot unused, or a
	// memory operand with no base/index register).
	RegFileNone
)

// RegIndex sentinels used in the Reg field of memory operands, in
// place of an actual 0-31 register number.
const (
	RegNone uint8 = 0xFF // no base/index register
	RegIP   uint8 = 0xFE // RIP-relative base
)

// Segment identifies the effective segment override, or SegNone.
// It occupies the low 3 bits of Instruction.Segment; the upper bits
// of that byte carry the EVEX broadcast element size (see SegmentField).
type Segment uint8

const (
	SegNone Segment = iota
	SegES
	SegCS
	SegSS
	SegDS
	SegFS
	SegGS
)

// SegmentField packs the effective segment override together with the
// EVEX broadcast element log2-size into a single byte.
type SegmentField uint8

const segmentMask = 0x07
const broadcastShift = 6

func (s SegmentField) Segment() Segment {
	return Segment(s & segmentMask)
}

func (s *SegmentField) setSegment(seg Segment) {
	*s = SegmentField(seg) | (*s &^ segmentMask)
}

// BroadcastLog2Size returns the log2 of the broadcast element size (1
// for a word, 2 for a dword, 3 for a qword), or -1 if no broadcast
// element size was recorded. A stored 0 reads as "none", so a byte
// element size cannot be reported.
func (s SegmentField) BroadcastLog2Size() int {
	v := int(s >> broadcastShift)
	if v == 0 {
		return -1
	}
	return v
}

func (s *SegmentField) setBroadcastLog2Size(log2 uint8) {
	*s = SegmentField(log2<<broadcastShift) | (*s & segmentMask)
}
