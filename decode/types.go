// Package decode implements a single-instruction decoder for the x86
// architecture, covering legacy, VEX, and EVEX encodings in both 32-bit
// and 64-bit modes. See decode.go for the entry point.
//
// The decoder is a pure function: Decode takes an immutable byte slice
// and an *Instruction to populate, touches no package-level mutable
// state, performs no I/O, and allocates nothing on the success path. Any
// number of goroutines may call it concurrently, each with its own
// *Instruction.
package decode

import "fmt"

// Mode selects the execution mode the buffer is decoded against.
type Mode int

const (
	Mode32 Mode = 32
	Mode64 Mode = 64
)

// Flags is a bitset carried on a successfully decoded Instruction.
type Flags uint8

const (
	FlagRep   Flags = 1 << iota // F3 REP
	FlagRepnz                   // F2 REPNZ
	FlagLock                    // F0 LOCK
	Flag64Bit                   // decoded in 64-bit mode
)

// OperandKind identifies what an Operand slot holds.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandMemory
	OperandMemoryBroadcast
	OperandImmediate
	OperandRelative // PC-relative offset, unresolved because Address == 0
)

// Operand is one decoded operand slot. Size is one of the operand-size
// codes (1=byte ... 7=zmm). Reg is a register index (0-31 for the
// vector file, 0-15 elsewhere), or the RegNone/RegIP sentinels for
// memory operands. Misc carries the register-file tag for register
// operands, or the packed SIB scale|index for memory operands.
type Operand struct {
	Kind OperandKind
	Size uint8
	Reg  uint8
	Misc uint8
}

// Instruction is the decoded output record. Decode overwrites all of
// its fields, setting Address to its address argument; on error the
// caller must treat it as undefined.
type Instruction struct {
	Type      Mnemonic
	Address   uint64
	Size      uint8
	Flags     Flags
	Segment   SegmentField
	AddrSize  uint8  // 1=16-bit, 2=32-bit, 3=64-bit
	OperandSz uint8  // variable-width operand size code, or 0
	Evex      uint16 // compressed EVEX side-info, nonzero iff EVEX was present
	Disp      int64
	Imm       int64
	Operands  [4]Operand
}

// Error is the flat, three-kind error taxonomy returned by Decode. It
// is always returned, never panicked.
type Error int

const (
	// ErrNeedMoreBytes means the buffer ended before a required byte.
	ErrNeedMoreBytes Error = -1
	// ErrUndefined means the encoding is illegal (#UD).
	ErrUndefined Error = -2
	// ErrInternal means the caller passed a Mode other than 32 or 64.
	ErrInternal Error = -3
)

func (e Error) Error() string {
	switch e {
	case ErrNeedMoreBytes:
		return "decode: need more bytes"
	case ErrUndefined:
		return "decode: undefined instruction (#UD)"
	case ErrInternal:
		return "decode: internal error (bad mode)"
	default:
		return fmt.Sprintf("decode: unknown error code %d", int(e))
	}
}

// reset clears an Instruction for reuse, leaving Address untouched so
// the caller-supplied address survives a Decode call that fills it in.
func (i *Instruction) reset() {
	addr := i.Address
	*i = Instruction{}
	i.Address = addr
}
