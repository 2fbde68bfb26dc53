package decode

// Decode reads a single instruction from the front of buf, decoded
// against mode (Mode32 or Mode64), and populates instr. address is
// passed straight through to resolve PC-relative operands to absolute
// targets; pass 0 to get the raw relative offset instead. On success it
// returns the number of bytes consumed (1-15) and a nil error. On
// failure it returns 0 and one of ErrNeedMoreBytes, ErrUndefined, or
// ErrInternal; instr's contents are then undefined.
//
// Decode touches no package-level mutable state and allocates nothing
// on the success path, so any number of goroutines may call it
// concurrently provided each uses its own *Instruction.
func Decode(buf []byte, mode Mode, address uint64, instr *Instruction) (int, error) {
	if mode != Mode32 && mode != Mode64 {
		return 0, ErrInternal
	}
	if !rootOffsetsSet {
		return 0, ErrInternal
	}

	instr.reset()
	instr.Address = address

	d := &decoder{buf: buf, mode: mode}
	if mode == Mode32 {
		d.addrSize = 2
	} else {
		d.addrSize = 3
	}

	if err := d.scanPrefixes(); err != nil {
		return 0, err
	}
	if err := d.parseOpcodeEscape(); err != nil {
		return 0, err
	}
	desc, err := d.walkTable()
	if err != nil {
		return 0, err
	}
	instr.Type = desc.Type

	if err := d.interpret(instr, desc); err != nil {
		return 0, err
	}
	if err := d.finalFixups(instr, desc); err != nil {
		return 0, err
	}
	return int(instr.Size), nil
}

// effective REP/REPNZ state; distinct from the Flags bitset carried on
// the output record, which records the same information for the caller.
const (
	repNone = iota
	repREP
	repREPNZ
)

// decoder is the scratch state for one Decode call. It is never reused
// across calls and carries no state beyond a single instruction.
type decoder struct {
	buf  []byte
	mode Mode
	off  int

	seg      Segment
	prefix66 bool
	addrSize uint8
	lock     bool
	rep      int

	// rexW is also set by VEX.W/EVEX.W; the W bit behaves exactly like
	// REX.W for operand sizing and broadcast element width.
	rexPresent             bool
	rexR, rexX, rexB, rexW bool

	opcodeEscape    int
	mandatoryPrefix int
	lastOpcodeByte  uint8

	evexActive bool
	vexL       uint8 // effective vector-length code driving table dispatch and OPSIZE; may be forced to 2 under EVEX rounding
	evexLL     uint8 // original EVEX.L'L as parsed, untouched by rounding forcing
	vexVVVV    uint8 // up to 5 bits: inverted vvvv, extended with V' in 64-bit EVEX
	rexRprime  bool

	evexZ      bool
	evexBbit   bool
	evexAaa    uint8
	evexVprime bool
	evexRaw    uint16
	evexOut    uint16
}

// peekAt bounds every input read. A read past the end of the buffer is
// "need more bytes"; a read past the 15-byte instruction cap, with the
// buffer known to extend beyond it, means the encoding cannot be a
// legal instruction at all.
func (d *decoder) peekAt(pos int) (uint8, error) {
	if pos >= len(d.buf) {
		return 0, ErrNeedMoreBytes
	}
	if pos >= 15 {
		return 0, ErrUndefined
	}
	return d.buf[pos], nil
}

func (d *decoder) peekByte() (uint8, error) { return d.peekAt(d.off) }

func (d *decoder) readByte() (uint8, error) {
	b, err := d.peekAt(d.off)
	if err != nil {
		return 0, err
	}
	d.off++
	return b, nil
}

func (d *decoder) readDisp32() (int64, error) {
	var v int32
	for i := 0; i < 4; i++ {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		v |= int32(b) << (8 * uint(i))
	}
	return int64(v), nil
}

// readIntN reads width little-endian bytes and either sign- or
// zero-extends the result to 64 bits.
func (d *decoder) readIntN(width int, signed bool) (int64, error) {
	var uv uint64
	for i := 0; i < width; i++ {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		uv |= uint64(b) << (8 * uint(i))
	}
	if signed && width < 8 {
		shift := uint(64 - 8*width)
		return int64(uv<<shift) >> shift, nil
	}
	return int64(uv), nil
}

// scanPrefixes consumes the legal legacy-prefix run (§4.1). It never
// fails on its own; a buffer that is exhausted or made entirely of
// prefix bytes surfaces "need more bytes" when the next stage tries to
// read the opcode byte.
func (d *decoder) scanPrefixes() error {
	rexOffset := -1
loop:
	for {
		b, err := d.peekByte()
		if err != nil {
			break loop
		}
		switch {
		case b == 0x26:
			if d.mode == Mode32 {
				d.seg = SegES
			}
		case b == 0x2e:
			if d.mode == Mode32 {
				d.seg = SegCS
			}
		case b == 0x36:
			if d.mode == Mode32 {
				d.seg = SegSS
			}
		case b == 0x3e:
			if d.mode == Mode32 {
				d.seg = SegDS
			}
		case b == 0x64:
			d.seg = SegFS
		case b == 0x65:
			d.seg = SegGS
		case b == 0x66:
			d.prefix66 = true
		case b == 0x67:
			if d.mode == Mode32 {
				d.addrSize = 1
			} else {
				d.addrSize = 2
			}
		case b == 0xf0:
			d.lock = true
		case b == 0xf3:
			d.rep = repREP
		case b == 0xf2:
			d.rep = repREPNZ
		case d.mode == Mode64 && b >= 0x40 && b <= 0x4f:
			rexOffset = d.off
			d.rexPresent = true
			d.rexW = b&0x08 != 0
			d.rexR = b&0x04 != 0
			d.rexX = b&0x02 != 0
			d.rexB = b&0x01 != 0
		default:
			break loop
		}
		d.off++
	}
	// A REX prefix only counts if it was the last byte before whatever
	// follows (the opcode, escape, or VEX/EVEX byte); otherwise discard it.
	if d.rexPresent && rexOffset != d.off-1 {
		d.rexPresent = false
		d.rexW, d.rexR, d.rexX, d.rexB = false, false, false, false
	}
	return nil
}

// parseOpcodeEscape detects the 0F/0F38/0F3A escape or a VEX/EVEX
// prefix and sets opcodeEscape and mandatoryPrefix accordingly (§4.2).
func (d *decoder) parseOpcodeEscape() error {
	b, err := d.peekByte()
	if err != nil {
		return err
	}

	if b == 0xc4 || b == 0xc5 || b == 0x62 {
		ok, err := d.tryVexEvex(b)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	if b == 0x0f {
		d.off++
		b2, err := d.peekByte()
		if err != nil {
			return err
		}
		switch b2 {
		case 0x38:
			d.off++
			d.opcodeEscape = esc0F38
		case 0x3a:
			d.off++
			d.opcodeEscape = esc0F3A
		default:
			d.opcodeEscape = esc0F
		}
		d.setMandatoryPrefixFromLegacy()
		return nil
	}

	// Plain path: b is left unconsumed; the one-byte table's kindTable256
	// step reads it as the opcode byte.
	d.opcodeEscape = escPlain
	return nil
}

func (d *decoder) setMandatoryPrefixFromLegacy() {
	switch {
	case d.rep == repREP:
		d.mandatoryPrefix = 2
	case d.rep == repREPNZ:
		d.mandatoryPrefix = 3
	case d.prefix66:
		d.mandatoryPrefix = 1
	default:
		d.mandatoryPrefix = 0
	}
}

// tryVexEvex attempts to parse firstByte (C4/C5/62) as a VEX or EVEX
// prefix. ok is false when the byte must instead be treated as a plain
// opcode (only possible in 32-bit mode, per §4.2).
func (d *decoder) tryVexEvex(firstByte uint8) (ok bool, err error) {
	b2, err := d.peekAt(d.off + 1)
	if err != nil {
		return false, err
	}
	if d.mode == Mode32 && b2&0xc0 != 0xc0 {
		return false, nil
	}
	if d.prefix66 || d.rep != repNone || d.rexPresent {
		return false, ErrUndefined
	}

	d.off += 2 // consume firstByte and b2

	switch firstByte {
	case 0xc5:
		d.rexR = b2&0x80 == 0
		if d.mode == Mode32 {
			d.rexR = false
		}
		d.vexVVVV = ^(b2 >> 3) & 0xf
		d.vexL = (b2 >> 2) & 0x1
		d.evexLL = d.vexL
		d.setMandatoryPrefixFromPP(b2 & 0x3)
		d.opcodeEscape = escVex0F

	case 0xc4:
		mapField := int(b2 & 0x1f)
		if mapField < 1 || mapField > 3 {
			return false, ErrUndefined
		}
		rexR := b2&0x80 == 0
		rexX := b2&0x40 == 0
		rexB := b2&0x20 == 0
		if d.mode == Mode32 {
			rexR, rexX, rexB = false, false, false
		}
		d.rexR, d.rexX, d.rexB = rexR, rexX, rexB
		b3, err := d.readByte()
		if err != nil {
			return false, err
		}
		d.rexW = b3&0x80 != 0
		d.vexVVVV = ^(b3 >> 3) & 0xf
		d.vexL = (b3 >> 2) & 0x1
		d.evexLL = d.vexL
		d.setMandatoryPrefixFromPP(b3 & 0x3)
		d.opcodeEscape = escVexRsvd + mapField

	case 0x62:
		if b2&0x8 != 0 {
			return false, ErrUndefined
		}
		mapField := int(b2 & 0x7)
		rexR := b2&0x80 == 0
		rexX := b2&0x40 == 0
		rexB := b2&0x20 == 0
		rexRprime := b2&0x10 == 0
		if d.mode == Mode32 {
			rexR, rexX, rexB, rexRprime = false, false, false, false
		}
		d.rexR, d.rexX, d.rexB, d.rexRprime = rexR, rexX, rexB, rexRprime

		b3, err := d.readByte()
		if err != nil {
			return false, err
		}
		d.rexW = b3&0x80 != 0
		d.vexVVVV = ^(b3 >> 3) & 0xf
		if b3&0x4 == 0 {
			return false, ErrUndefined
		}
		d.setMandatoryPrefixFromPP(b3 & 0x3)

		b4, err := d.readByte()
		if err != nil {
			return false, err
		}
		d.evexZ = b4&0x80 != 0
		d.vexL = (b4 >> 5) & 0x3
		d.evexLL = d.vexL
		d.evexBbit = b4&0x10 != 0
		vprime := b4&0x08 == 0
		if d.mode == Mode64 {
			if vprime {
				d.vexVVVV |= 0x10
			}
		} else if vprime {
			// The encoded V' bit must be 1 outside 64-bit mode.
			return false, ErrUndefined
		}
		d.evexVprime = vprime
		d.evexAaa = b4 & 0x7
		d.evexRaw = uint16(b4) | 0x100
		d.evexActive = true
		d.opcodeEscape = escEvexRsvd + mapField
	}
	return true, nil
}

func (d *decoder) setMandatoryPrefixFromPP(pp uint8) { d.mandatoryPrefix = int(pp) }

// walkTable performs the opcode-map walk of §4.2 steps 1-5, stepping
// through table/descs until a leaf or "none" entry is reached.
func (d *decoder) walkTable() (*Descriptor, error) {
	root := rootOffset32
	if d.mode == Mode64 {
		root = rootOffset64
	}
	base, kind := tableWalk(root, d.opcodeEscape)
	for {
		switch kind {
		case kindTable256:
			b, err := d.readByte()
			if err != nil {
				return nil, err
			}
			d.lastOpcodeByte = b
			base, kind = tableWalk(base, int(b))
		case kindTablePrefix:
			base, kind = tableWalk(base, d.mandatoryPrefix)
		case kindTable16:
			mrm, err := d.peekByte()
			if err != nil {
				return nil, err
			}
			step := int((mrm >> 3) & 0x7)
			if mrm>>6 == 3 {
				step |= 8
			}
			base, kind = tableWalk(base, step)
		case kindTable8Ext:
			mrm, err := d.peekByte()
			if err != nil {
				return nil, err
			}
			base, kind = tableWalk(base, int(mrm&0x7))
		case kindTableVex:
			step := 0
			if d.rexW {
				step = 1
			}
			step |= int(d.vexL&0x3) << 1
			base, kind = tableWalk(base, step)
		case kindInstr:
			return &descs[base], nil
		case kindNone:
			return nil, ErrUndefined
		default:
			return nil, ErrInternal
		}
	}
}

// modrmInfo is the decoded (but not yet operand-resolved) ModR/M byte,
// whether read from the stream or synthesized (§4.4).
type modrmInfo struct {
	mod, reg, rm uint8
}

func (d *decoder) decodeModRM(desc *Descriptor) (modrmInfo, error) {
	if desc.hasModRM() {
		b, err := d.readByte()
		if err != nil {
			return modrmInfo{}, err
		}
		return modrmInfo{mod: b >> 6, reg: (b >> 3) & 0x7, rm: b & 0x7}, nil
	}
	return modrmInfo{mod: 3, reg: 0, rm: d.lastOpcodeByte & 0x7}, nil
}

func (d *decoder) defaultOpSize(ignore66 bool) uint8 {
	if d.prefix66 && !ignore66 {
		return 2
	}
	return 3
}

// resolveOpSize implements the OPSIZE table of §4.3.
func (d *decoder) resolveOpSize(code int, ignore66 bool) (op, alt uint8) {
	switch {
	case code == opSizeByte:
		return 1, 1
	case code == opSizeCode2:
		if d.mode == Mode64 && d.rexW {
			return 4, 4
		}
		v := d.defaultOpSize(ignore66)
		return v, v
	case code == opSize64:
		if d.mode == Mode64 {
			return 4, 4
		}
		return 3, 3
	case code >= opSizeXMM:
		v := 5 + d.vexL
		if v > 7 {
			v = 7
		}
		a := v - uint8(code&0x3)
		return v, a
	default:
		v := d.defaultOpSize(ignore66)
		return v, v
	}
}

// interpret reads the descriptor's operands out of the byte stream
// (§4.3-§4.7) into instr.
func (d *decoder) interpret(instr *Instruction, desc *Descriptor) error {
	mrm, err := d.decodeModRM(desc)
	if err != nil {
		return err
	}
	isRegForm := mrm.mod == 3
	// MOV to/from CR/DR is always treated as register-direct by real
	// hardware regardless of the encoded mod bits.
	if desc.Type == MOV_CR || desc.Type == MOV_DR {
		isRegForm = true
	}

	if err := d.evexChecksAndRounding(desc, isRegForm); err != nil {
		return err
	}

	opv, altv := d.resolveOpSize(desc.opSizeCode(), desc.ignore66())
	instr.OperandSz = 0
	if desc.instrWidthFlag() {
		instr.OperandSz = opv
	}
	sizeTable := [4]uint8{desc.fix1(), desc.fix2(), opv, altv}

	if idx, ok := desc.modregIdx(); ok {
		rf := desc.regTypeModReg()
		reg := mrm.reg
		// REX.R only extends files with more than 8 registers; for the
		// others the bit is ignored (or, for DR/mask, outright illegal).
		switch rf {
		case RegFileGPL, RegFileVec, RegFileCR:
			if d.rexR {
				reg |= 8
			}
		}
		if rf == RegFileVec && d.rexRprime {
			reg |= 16
		}
		switch rf {
		case RegFileCR:
			switch reg {
			case 0, 2, 3, 4, 8:
			default:
				return ErrUndefined
			}
		case RegFileDR:
			if d.rexR {
				return ErrUndefined
			}
		case RegFileMask:
			if d.rexR || (d.evexActive && d.evexZ) {
				return ErrUndefined
			}
		}
		if rf != RegFileVec && d.rexRprime {
			return ErrUndefined
		}
		sz := sizeTable[desc.sizeSel(osModRegSelShift)]
		instr.Operands[idx] = Operand{Kind: OperandRegister, Size: sz, Reg: reg, Misc: uint8(rf)}
	}

	if idx, ok := desc.modrmIdx(); ok {
		rf := desc.regTypeModRM()
		sz := sizeTable[desc.sizeSel(osModRMSelShift)]
		if isRegForm {
			reg := mrm.rm
			if d.rexB && (rf == RegFileGPL || rf == RegFileVec) {
				reg |= 8
			}
			if d.evexActive && rf == RegFileVec && d.rexX {
				reg |= 16
			}
			instr.Operands[idx] = Operand{Kind: OperandRegister, Size: sz, Reg: reg, Misc: uint8(rf)}
		} else {
			op, err := d.decodeMemory(instr, mrm, desc, sz)
			if err != nil {
				return err
			}
			instr.Operands[idx] = op
		}
	}

	if idx, ok := desc.vexregIdx(); ok {
		rf := desc.regTypeVexReg()
		full := d.vexVVVV
		if d.mode == Mode32 {
			full &= 0x7
		}
		full |= desc.zeroRegVal()
		if rf == RegFileMask && full >= 8 {
			return ErrUndefined
		}
		sz := sizeTable[desc.sizeSel(osVexRegSelShift)]
		instr.Operands[idx] = Operand{Kind: OperandRegister, Size: sz, Reg: full, Misc: uint8(rf)}
	} else if d.vexVVVV != 0 {
		return ErrUndefined
	}

	if err := d.decodeImmediate(instr, desc, sizeTable); err != nil {
		return err
	}

	instr.Evex = d.evexOut
	return nil
}

// evexChecksAndRounding performs the EVEX legality checks of §4.7 and,
// when rounding control applies, forces vexL to 2 before operand sizes
// are resolved.
func (d *decoder) evexChecksAndRounding(desc *Descriptor, isRegForm bool) error {
	if !d.evexActive {
		return nil
	}
	if desc.usesVSIB() && (d.evexAaa == 0 || d.evexZ) {
		return ErrUndefined
	}
	if !desc.evexMask() && (d.evexZ || d.evexAaa != 0) {
		return ErrUndefined
	}
	if d.evexZ && d.evexAaa == 0 {
		return ErrUndefined
	}
	if memIdx, ok := desc.modrmIdx(); ok && memIdx == 0 && !isRegForm && d.evexZ {
		return ErrUndefined
	}

	// The output keeps the 0x100 present-marker from evexRaw, so Evex is
	// nonzero exactly when an EVEX prefix was decoded even if z, aaa,
	// and V' are all zero.
	if isRegForm && d.evexBbit {
		if !desc.evexSAE() {
			return ErrUndefined
		}
		if desc.evexER() {
			d.evexOut = d.evexRaw
		} else {
			// SAE without rounding control: L'L is nominally the RC field
			// but is ignored; report RC as set and b as clear.
			d.evexOut = (d.evexRaw & 0x187) | 0x60
		}
		d.vexL = 2
	} else {
		if d.evexLL == 3 {
			return ErrUndefined
		}
		d.evexOut = d.evexRaw & 0x187
	}

	if desc.usesVSIB() {
		// EVEX.V' extends the SIB index, not vvvv.
		d.vexVVVV &= 0xf
	}
	return nil
}

// decodeMemory decodes a memory-form ModR/M operand: optional SIB,
// EVEX broadcast, and displacement (§4.4).
func (d *decoder) decodeMemory(instr *Instruction, mrm modrmInfo, desc *Descriptor, sz uint8) (Operand, error) {
	var op Operand
	op.Kind = OperandMemory
	op.Size = sz

	scale := uint8(0)
	index := uint8(RegNone)
	base := uint8(RegNone)
	haveBase := false
	effBaseField := mrm.rm

	if mrm.rm == 4 {
		sib, err := d.readByte()
		if err != nil {
			return op, err
		}
		scale = sib >> 6
		rawIdx := (sib >> 3) & 0x7
		rawBase := sib & 0x7
		effBaseField = rawBase

		if desc.usesVSIB() {
			idx := rawIdx
			if d.rexX {
				idx |= 8
			}
			if d.evexActive && d.evexVprime {
				idx |= 16
			}
			index = idx
		} else {
			idx := rawIdx
			if d.rexX {
				idx |= 8
			}
			if idx != 4 {
				index = idx
			}
		}

		if mrm.mod == 0 && rawBase == 5 {
			haveBase = false
		} else {
			b := rawBase
			if d.rexB {
				b |= 8
			}
			base = b
			haveBase = true
		}
	} else {
		if desc.usesVSIB() {
			return op, ErrUndefined
		}
		if mrm.mod == 0 && mrm.rm == 5 {
			if d.mode == Mode64 {
				base = RegIP
				haveBase = true
			} else {
				haveBase = false
			}
		} else {
			b := mrm.rm
			if d.rexB {
				b |= 8
			}
			base = b
			haveBase = true
		}
	}
	if !haveBase {
		base = RegNone
	}

	dispScaleLog2 := uint8(0)
	if d.evexActive {
		if d.evexBbit {
			if !desc.evexBroadcast() {
				return op, ErrUndefined
			}
			var bcst uint8
			switch {
			case desc.evexBcst16():
				bcst = 1
			case d.rexW:
				bcst = 3
			default:
				bcst = 2
			}
			instr.Segment.setBroadcastLog2Size(bcst)
			dispScaleLog2 = bcst
			op.Kind = OperandMemoryBroadcast
		} else if sz >= 1 {
			dispScaleLog2 = sz - 1
		}
	}

	switch {
	case mrm.mod == 1:
		b, err := d.readByte()
		if err != nil {
			return op, err
		}
		instr.Disp = int64(int8(b)) << dispScaleLog2
	case mrm.mod == 2 || (mrm.mod == 0 && effBaseField == 5):
		v, err := d.readDisp32()
		if err != nil {
			return op, err
		}
		instr.Disp = v
	default:
		instr.Disp = 0
	}

	op.Reg = base
	// Misc packs scale|index; a missing index keeps the whole-byte
	// RegNone sentinel so it can never be mistaken for zmm31.
	if index == RegNone {
		op.Misc = RegNone
	} else {
		op.Misc = (scale << 6) | index
	}
	return op, nil
}

func addrSizeBytes(code uint8) int {
	switch code {
	case 1:
		return 2
	case 3:
		return 8
	default:
		return 4
	}
}

// operandSizedImmWidth implements the per-mnemonic width rules for
// IMM_CONTROL 5 and 7 from §4.5.
func (d *decoder) operandSizedImmWidth(mnem Mnemonic, opv uint8) int {
	switch mnem {
	case RET, RETF, SSE_EXTRQ, SSE_INSERTQ:
		return 2
	case JMPF, CALLF:
		return (1<<int(opv))>>1 + 2
	case MOVABS:
		return (1 << int(opv)) >> 1
	case ENTER:
		return 3
	default:
		if opv == 2 {
			return 2
		}
		return 4
	}
}

// fillRelative resolves a PC-relative immediate per §4.5: to an
// absolute target when instr.Address is nonzero, or left as the raw
// signed offset otherwise.
func (d *decoder) fillRelative(instr *Instruction, raw int64, idx int, sz uint8) {
	if instr.Address != 0 {
		instr.Imm = int64(instr.Address) + int64(d.off) + raw
		instr.Operands[idx] = Operand{Kind: OperandImmediate, Size: sz, Reg: RegNone}
		return
	}
	instr.Imm = raw
	instr.Operands[idx] = Operand{Kind: OperandRelative, Size: sz, Reg: RegNone}
}

// imm8Size is the reported operand size of an 8-bit immediate: byte
// when the descriptor pins it to 8 bits, the instruction's operand
// size when the byte is sign-extended to it (e.g. the 83h ALU group).
func imm8Size(desc *Descriptor, opv uint8) uint8 {
	if desc.immIsFixedByte() {
		return 1
	}
	return opv
}

// decodeImmediate implements the IMM_CONTROL dispatch of §4.5. The
// immediate's operand slot is always valid when the control is nonzero
// (it defaults to slot 3, see immIdx).
func (d *decoder) decodeImmediate(instr *Instruction, desc *Descriptor, sizeTable [4]uint8) error {
	idx := desc.immIdx()

	switch desc.immControl() {
	case 0:
		return nil

	case 1:
		instr.Imm = 1
		instr.Operands[idx] = Operand{Kind: OperandImmediate, Size: 1, Reg: RegNone}
		return nil

	case 2:
		width := addrSizeBytes(d.addrSize)
		v, err := d.readIntN(width, false)
		if err != nil {
			return err
		}
		instr.Disp = v
		instr.Operands[idx] = Operand{Kind: OperandMemory, Size: sizeTable[selOp], Reg: RegNone, Misc: RegNone}
		return nil

	case 3:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		if d.mode == Mode32 {
			b &= 0x7f
		}
		instr.Imm = int64(b & 0xf)
		instr.Operands[idx] = Operand{Kind: OperandRegister, Size: sizeTable[selOp], Reg: b >> 4, Misc: uint8(RegFileVec)}
		return nil

	case 4:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		instr.Imm = int64(int8(b))
		instr.Operands[idx] = Operand{Kind: OperandImmediate, Size: imm8Size(desc, sizeTable[selOp]), Reg: RegNone}
		return nil

	case 5:
		width := d.operandSizedImmWidth(instr.Type, sizeTable[selOp])
		// Only the plain 2- and 4-byte immediates sign-extend; the odd
		// widths (ENTER's imm16+imm8, far pointers, full 8-byte MOVABS)
		// are raw bit patterns.
		v, err := d.readIntN(width, width == 2 || width == 4)
		if err != nil {
			return err
		}
		instr.Imm = v
		instr.Operands[idx] = Operand{Kind: OperandImmediate, Size: sizeTable[desc.sizeSel(osImmSelShift)], Reg: RegNone}
		return nil

	case 6:
		b, err := d.readByte()
		if err != nil {
			return err
		}
		d.fillRelative(instr, int64(int8(b)), idx, imm8Size(desc, sizeTable[selOp]))
		return nil

	case 7:
		width := d.operandSizedImmWidth(instr.Type, sizeTable[selOp])
		v, err := d.readIntN(width, width == 2 || width == 4)
		if err != nil {
			return err
		}
		d.fillRelative(instr, v, idx, sizeTable[desc.sizeSel(osImmSelShift)])
		return nil
	}
	return nil
}

// threednowLegalOpcodes is the set of defined 3DNow! trailing-opcode
// bytes; anything else (or any byte with bit 6 set) is #UD per §4.8.
var threednowLegalOpcodes = map[uint8]bool{
	0x0c: true, 0x0d: true, 0x1c: true, 0x1d: true,
	0x8a: true, 0x8e: true,
	0x90: true, 0x94: true, 0x96: true, 0x97: true, 0x9a: true, 0x9e: true,
	0xa0: true, 0xa4: true, 0xa6: true, 0xa7: true, 0xaa: true, 0xae: true,
	0xb0: true, 0xb4: true, 0xb6: true, 0xb7: true, 0xbb: true, 0xbf: true,
}

// finalFixups applies §4.8: the XCHG/NOP and 3DNow! resolutions, LOCK
// legality, the byte-register AH/CH/DH/BH reinterpretation, and the
// remaining instr fields that only make sense once decoding succeeded.
func (d *decoder) finalFixups(instr *Instruction, desc *Descriptor) error {
	if instr.Type == XCHG_NOP {
		if instr.Operands[0].Reg == 0 && instr.Operands[1].Reg == 0 {
			instr.Type = NOP
			instr.Operands[0] = Operand{}
			instr.Operands[1] = Operand{}
		} else {
			instr.Type = XCHG
		}
	}

	if instr.Type == THREEDNOW {
		opByte := uint8(instr.Imm)
		if opByte&0x40 != 0 || !threednowLegalOpcodes[opByte] {
			return ErrUndefined
		}
		// The trailing byte is an opcode extension, not an operand.
		instr.Imm = 0
		instr.Operands[desc.immIdx()] = Operand{}
	}

	if d.lock {
		if !desc.mayLock() {
			return ErrUndefined
		}
		switch instr.Operands[0].Kind {
		case OperandMemory, OperandMemoryBroadcast:
		default:
			return ErrUndefined
		}
		instr.Flags |= FlagLock
	}

	switch d.rep {
	case repREP:
		instr.Flags |= FlagRep
	case repREPNZ:
		instr.Flags |= FlagRepnz
	}
	if d.mode == Mode64 {
		instr.Flags |= Flag64Bit
	}

	if !d.rexPresent {
		for i := range instr.Operands {
			op := &instr.Operands[i]
			if op.Kind == OperandRegister && RegisterFile(op.Misc) == RegFileGPL && op.Size == 1 && op.Reg >= 4 && op.Reg <= 7 {
				op.Misc = uint8(RegFileGPH)
			}
		}
	}

	instr.Segment.setSegment(d.seg)
	instr.AddrSize = d.addrSize
	instr.Size = uint8(d.off)
	return nil
}
