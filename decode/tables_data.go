package decode

import "github.com/rxid09672/fadecore/internal/log"

// This file is the table generator: it builds the flat table/descs
// slices that tableWalk and the Descriptor accessors read at decode
// time. It runs once, at package init, and its output never changes
// afterward. A real instruction-set-wide build of this kind would
// normally be produced by a separate code-generation tool reading a
// machine-readable opcode table; here the generator and its output
// live in the same package, authored directly as Go rather than
// generated, since the covered opcode set is a deliberately
// representative subset rather than the full ISA.

var tablesLog = log.NamedLogger("decode", "tables")

// root table opcode-escape indices.
const (
	escPlain    = 0
	esc0F       = 1
	esc0F38     = 2
	esc0F3A     = 3
	escVexRsvd  = 4
	escVex0F    = 5
	escVex0F38  = 6
	escVex0F3A  = 7
	escEvexRsvd = 8
	escEvex0F   = 9
	escEvex0F38 = 10
	escEvex0F3A = 11
)

type tableBuilder struct {
	table []uint16
	descs []Descriptor
}

func (b *tableBuilder) alloc(n int) int {
	start := len(b.table)
	for i := 0; i < n; i++ {
		b.table = append(b.table, uint16(kindNone))
	}
	return start
}

func (b *tableBuilder) newTable256() int    { return b.alloc(256) }
func (b *tableBuilder) newTable16() int     { return b.alloc(16) }
func (b *tableBuilder) newTable8() int      { return b.alloc(8) }
func (b *tableBuilder) newTablePrefix() int { return b.alloc(4) }
func (b *tableBuilder) newTableVex() int    { return b.alloc(8) }
func (b *tableBuilder) newRoot() int        { return b.alloc(tableRootEntries) }

func (b *tableBuilder) link(base, step int, kind entryKind, target int) {
	b.table[base+step] = makeEntry(kind, target)
}

func (b *tableBuilder) leaf(base, step int, d Descriptor) {
	idx := len(b.descs)
	b.descs = append(b.descs, d)
	b.table[base+step] = makeEntry(kindInstr, idx)
}

// leafRange installs the same descriptor at every step in [lo, hi].
func (b *tableBuilder) leafRange(base, lo, hi int, d Descriptor) {
	idx := len(b.descs)
	b.descs = append(b.descs, d)
	e := makeEntry(kindInstr, idx)
	for s := lo; s <= hi; s++ {
		b.table[base+s] = e
	}
}

// leafGroup installs d at both the memory-form row (reg) and the
// register-form row (8+reg) of a 16-way ModR/M group table. Rows left
// untouched stay "none", which is how memory-only encodings reject
// their register form and vice versa.
func (b *tableBuilder) leafGroup(base, reg int, d Descriptor) {
	idx := len(b.descs)
	b.descs = append(b.descs, d)
	e := makeEntry(kindInstr, idx)
	b.table[base+reg] = e
	b.table[base+8+reg] = e
}

// ---- descriptor construction ----
//
// desc builds a Descriptor from functional options. Every option
// leaves unset fields at their "absent" zero value, so callers only
// spell out what the instruction actually uses.

type dopts struct {
	mnem Mnemonic

	hasModRM     bool
	modrmSlot    int
	modrmSizeSel int
	modrmReg     RegisterFile

	modregSlot    int
	modregSizeSel int
	modregReg     RegisterFile

	vexregSlot    int
	vexregSizeSel int
	vexregReg     RegisterFile
	zeroRegVal    bool

	immSlot    int
	immSizeSel int
	immByte    bool
	immControl int

	fix1     uint8
	fix2     uint8 // actual size code, 1-4
	opSize   int
	ignore66 bool
	mayLock  bool

	evexMask      bool
	evexBroadcast bool
	evexBcst16    bool
	evexSAE       bool
	evexER        bool
	usesVSIB      bool
	instrWidth    bool
}

type descOption func(*dopts)

func withModRM(slot, sizeSel int, reg RegisterFile) descOption {
	return func(o *dopts) {
		o.hasModRM = true
		o.modrmSlot = slot
		o.modrmSizeSel = sizeSel
		o.modrmReg = reg
	}
}

// withModRMByte declares that the encoding consumes a ModR/M byte that
// only serves as an opcode extension, with no r/m operand (the fence
// instructions in group 15 work this way).
func withModRMByte() descOption {
	return func(o *dopts) { o.hasModRM = true }
}

// withModRMSynth declares a ModR/M-style register operand for an
// opcode that does not itself carry a ModR/M byte: the register index
// comes from the low 3 bits of the already-consumed opcode byte (e.g.
// PUSH/POP/XCHG/BSWAP r64, whose register is baked into the opcode).
func withModRMSynth(slot, sizeSel int, reg RegisterFile) descOption {
	return func(o *dopts) {
		o.hasModRM = false
		o.modrmSlot = slot
		o.modrmSizeSel = sizeSel
		o.modrmReg = reg
	}
}

func withModReg(slot, sizeSel int, reg RegisterFile) descOption {
	return func(o *dopts) {
		o.modregSlot = slot
		o.modregSizeSel = sizeSel
		o.modregReg = reg
	}
}

func withVexReg(slot, sizeSel int, reg RegisterFile) descOption {
	return func(o *dopts) {
		o.vexregSlot = slot
		o.vexregSizeSel = sizeSel
		o.vexregReg = reg
	}
}

// withImplicitCL places the fixed CL count register of the shift and
// double-shift instructions: without a VEX prefix vvvv is zero, so the
// zero-reg default of 1 selects CL through the vvvv operand path.
func withImplicitCL(slot int) descOption {
	return func(o *dopts) {
		o.vexregSlot = slot
		o.vexregSizeSel = selFix1
		o.vexregReg = RegFileGPL
		o.zeroRegVal = true
	}
}

func withImm(slot, sizeSel int) descOption {
	return func(o *dopts) { o.immSlot = slot; o.immSizeSel = sizeSel }
}

// withImmByte declares a fixed 8-bit immediate operand: the byte is a
// value in its own right, not sign-extended into the operand width.
func withImmByte(slot int) descOption {
	return func(o *dopts) { o.immSlot = slot; o.immByte = true; o.immControl = 4 }
}

// withImmSext8 declares an 8-bit immediate that is sign-extended to
// the instruction's operand size (the 83h ALU group, 6Bh IMUL, 6Ah
// PUSH). The operand reports the extended size.
func withImmSext8(slot int) descOption {
	return func(o *dopts) { o.immSlot = slot; o.immSizeSel = selOp; o.immControl = 4 }
}

func withImmControl(ctl int) descOption {
	return func(o *dopts) { o.immControl = ctl }
}

func withFix1(v uint8) descOption     { return func(o *dopts) { o.fix1 = v } }
func withFix2(v uint8) descOption     { return func(o *dopts) { o.fix2 = v } }
func withOpSize(code int) descOption  { return func(o *dopts) { o.opSize = code } }
func withIgnore66() descOption        { return func(o *dopts) { o.ignore66 = true } }
func withLock() descOption            { return func(o *dopts) { o.mayLock = true } }
func withEvexMask() descOption        { return func(o *dopts) { o.evexMask = true } }
func withEvexBroadcast() descOption   { return func(o *dopts) { o.evexBroadcast = true } }
func withEvexBcst16() descOption      { return func(o *dopts) { o.evexBcst16 = true } }
func withEvexSAE() descOption         { return func(o *dopts) { o.evexSAE = true } }
func withEvexER() descOption          { return func(o *dopts) { o.evexER = true } }
func withVSIB() descOption            { return func(o *dopts) { o.usesVSIB = true } }
func withInstrWidth() descOption      { return func(o *dopts) { o.instrWidth = true } }

// vexregFileCode is the inverse of the vexregFiles table in tables.go.
func vexregFileCode(rf RegisterFile) uint16 {
	for code, f := range vexregFiles {
		if f == rf {
			return uint16(code)
		}
	}
	panic("decode: register file not encodable in the vexreg field")
}

func newDesc(mnem Mnemonic, opts ...descOption) Descriptor {
	o := dopts{mnem: mnem, modrmSlot: -1, modregSlot: -1, vexregSlot: -1, immSlot: -1}
	for _, opt := range opts {
		opt(&o)
	}

	var oi, osz, rt uint16
	setIdx := func(shift uint, slot int) {
		if slot >= 0 {
			oi |= uint16(slot^3) << shift
		}
	}
	setIdx(oiModRMShift, o.modrmSlot)
	setIdx(oiModRegShift, o.modregSlot)
	setIdx(oiVexRegShift, o.vexregSlot)
	// The immediate index has no absent form; a left-out slot encodes
	// as slot 3 and is only meaningful when immControl is nonzero.
	setIdx(oiImmShift, o.immSlot)
	if o.evexBroadcast {
		oi |= oiEvexBcst
	}
	if o.evexMask {
		oi |= oiEvexMask
	}
	if o.zeroRegVal {
		oi |= oiZeroRegVal
	}
	if o.mayLock {
		oi |= oiLock
	}
	oi |= uint16(o.immControl&oiImmCtlMask) << oiImmCtlShift
	if o.usesVSIB {
		oi |= oiVsib
	}

	osz |= uint16(o.modrmSizeSel&0x3) << osModRMSelShift
	osz |= uint16(o.modregSizeSel&0x3) << osModRegSelShift
	osz |= uint16(o.vexregSizeSel&0x3) << osVexRegSelShift
	if o.immByte {
		osz |= osImmByteBit
	} else {
		osz |= uint16(o.immSizeSel&0x3) << osImmSelShift
	}
	osz |= uint16(o.fix1&osFix1Mask) << osFix1Shift
	fix2raw := uint8(0)
	if o.fix2 > 0 {
		fix2raw = o.fix2 - 1
	}
	osz |= uint16(fix2raw&osFix2Mask) << osFix2Shift
	if o.instrWidth {
		osz |= osInstrWidth
	}

	rt |= uint16(o.modrmReg&0x7) << rtModRMShift
	rt |= uint16(o.modregReg&0x7) << rtModRegShift
	if o.vexregSlot >= 0 {
		rt |= vexregFileCode(o.vexregReg) << rtVexRegShift
	}
	if o.evexSAE {
		rt |= rtEvexSAE
	}
	if o.evexER {
		rt |= rtEvexER
	}
	if o.evexBcst16 {
		rt |= rtEvexBcst16
	}
	rt |= uint16(o.opSize&rtOpSizeMask) << rtOpSizeShift
	if o.hasModRM {
		rt |= rtHasModRM
	}
	if o.ignore66 {
		rt |= rtIgnore66
	}

	return Descriptor{Type: o.mnem, OperandIndices: oi, OperandSizes: osz, RegTypes: rt}
}

// Operand-size selector values, matching the {fix1, fix2, opSize, opSizeAlt} array index.
const (
	selFix1 = 0
	selFix2 = 1
	selOp   = 2
	selAlt  = 3
)

// opSizeCode values for the descriptor's 3-bit base operand-size field.
const (
	opSizeDefault = 0 // mode/66-dependent: 16/32-bit
	opSizeByte    = 1 // fixed 8-bit regardless of mode/prefixes
	opSizeCode2   = 2 // like the default, but REX.W upgrades to 64-bit
	opSize64      = 3 // 64-bit in 64-bit mode regardless of 66h; 32-bit otherwise
	// codes 4-7: vector size class, low 2 bits pick the alt-size reduction
	opSizeXMM    = 4 // 128/256/512 by VEX.L/EVEX.L'L, no reduction
	opSizeXMMred = 5 // same, alt size one step smaller (full vs half)
)

func init() {
	b := &tableBuilder{}

	root32 := b.newRoot()
	root64 := b.newRoot()

	oneByte32 := buildOneByteTable(b, Mode32)
	oneByte64 := buildOneByteTable(b, Mode64)
	b.link(root32, escPlain, kindTable256, oneByte32)
	b.link(root64, escPlain, kindTable256, oneByte64)

	twoByte := buildTwoByteTable(b)
	b.link(root32, esc0F, kindTable256, twoByte)
	b.link(root64, esc0F, kindTable256, twoByte)

	map38 := buildMap0F38(b)
	b.link(root32, esc0F38, kindTable256, map38)
	b.link(root64, esc0F38, kindTable256, map38)

	map3A := buildMap0F3A(b)
	b.link(root32, esc0F3A, kindTable256, map3A)
	b.link(root64, esc0F3A, kindTable256, map3A)

	vex0F := buildVexMap1(b)
	b.link(root32, escVex0F, kindTable256, vex0F)
	b.link(root64, escVex0F, kindTable256, vex0F)

	vex0F38 := buildVexMap2(b)
	b.link(root32, escVex0F38, kindTable256, vex0F38)
	b.link(root64, escVex0F38, kindTable256, vex0F38)

	vex0F3A := buildVexMap3(b)
	b.link(root32, escVex0F3A, kindTable256, vex0F3A)
	b.link(root64, escVex0F3A, kindTable256, vex0F3A)

	evex0F := buildEvexMap1(b)
	b.link(root32, escEvex0F, kindTable256, evex0F)
	b.link(root64, escEvex0F, kindTable256, evex0F)

	evex0F38 := buildEvexMap2(b)
	b.link(root32, escEvex0F38, kindTable256, evex0F38)
	b.link(root64, escEvex0F38, kindTable256, evex0F38)

	table = b.table
	descs = b.descs
	rootOffset32 = root32
	rootOffset64 = root64
	rootOffsetsSet = true

	tablesLog.WithFields(map[string]interface{}{
		"entries":     len(table),
		"descriptors": len(descs),
	}).Debug("decode tables built")
}

// buildOneByteTable installs the legacy single-byte opcode map. mode
// only matters for the handful of opcodes that differ between 32-bit
// and 64-bit: the near relative branches ignore 66h in 64-bit mode;
// PUSHA/POPA, the 82h ALU alias, and the INC/DEC-by-register
// block are only legal in 32-bit mode; in 64-bit mode 40h-4Fh is the
// REX prefix range, already consumed by the prefix scanner, so the
// 64-bit table never sees those bytes.
func buildOneByteTable(b *tableBuilder, mode Mode) int {
	t := b.newTable256()

	// 00-3D: ALU group, 8 operations x {Eb,Gb / Ev,Gv / Gb,Eb / Gv,Ev / AL,Ib / eAX,Iz}
	aluOps := []Mnemonic{ADD, OR, ADC, SBB, AND, SUB, XOR, CMP}
	for i, op := range aluOps {
		base := i * 8
		b.leaf(t, base+0, newDesc(op, withModRM(0, selFix1, RegFileGPL), withModReg(1, selFix1, RegFileGPL), withFix1(1), withLock()))
		b.leaf(t, base+1, newDesc(op, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
		b.leaf(t, base+2, newDesc(op, withModRM(1, selFix1, RegFileGPL), withModReg(0, selFix1, RegFileGPL), withFix1(1)))
		b.leaf(t, base+3, newDesc(op, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
		// AL/eAX forms: the accumulator is always register 0, never
		// opcode-coded, so it goes through the implicit-zero-register
		// field rather than the opcode-low-bits synthesis below.
		b.leaf(t, base+4, newDesc(op, withVexReg(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
		b.leaf(t, base+5, newDesc(op, withVexReg(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	}

	if mode == Mode32 {
		// 40-4F: INC/DEC r32; in 64-bit these bytes are REX prefixes.
		for r := 0; r < 8; r++ {
			b.leaf(t, 0x40+r, newDesc(INC, withModRMSynth(0, selOp, RegFileGPL), withInstrWidth()))
			b.leaf(t, 0x48+r, newDesc(DEC, withModRMSynth(0, selOp, RegFileGPL), withInstrWidth()))
		}
	}

	// 50-57 PUSH r64/r32, 58-5F POP r64/r32 (register baked into opcode).
	for r := 0; r < 8; r++ {
		b.leaf(t, 0x50+r, newDesc(PUSH, withModRMSynth(0, selOp, RegFileGPL), withOpSize(opSize64), withInstrWidth()))
		b.leaf(t, 0x58+r, newDesc(POP, withModRMSynth(0, selOp, RegFileGPL), withOpSize(opSize64), withInstrWidth()))
	}

	if mode == Mode32 {
		b.leaf(t, 0x60, newDesc(PUSHA))
		b.leaf(t, 0x61, newDesc(POPA))
	}

	// 68/6A PUSH imm, 69/6B IMUL Gv,Ev,Iz/Ib
	b.leaf(t, 0x68, newDesc(PUSH, withImm(0, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0x6a, newDesc(PUSH, withImmSext8(0), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0x69, newDesc(IMUL, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withImm(2, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0x6b, newDesc(IMUL, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withImmSext8(2), withOpSize(opSizeCode2), withInstrWidth()))

	// relBranch builds a relative-branch descriptor; in 64-bit mode the
	// 66h prefix has no effect on near branches.
	relBranch := func(m Mnemonic, ctl int) Descriptor {
		if mode == Mode64 {
			return newDesc(m, withImm(0, selOp), withImmControl(ctl), withIgnore66())
		}
		return newDesc(m, withImm(0, selOp), withImmControl(ctl))
	}

	// 70-7F: Jcc rel8
	jcc := []Mnemonic{JO, JNO, JB, JAE, JE, JNE, JBE, JA, JS, JNS, JP, JNP, JL, JGE, JLE, JG}
	for i, m := range jcc {
		b.leaf(t, 0x70+i, relBranch(m, 6))
	}

	// 80-83: ALU grp1 Eb/Ev, Ib/Iz immediate forms, dispatched by ModR/M.reg.
	grp1 := b.newTable16()
	for i, op := range aluOps {
		b.leafGroup(grp1, i, newDesc(op, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1), withLock()))
	}
	b.link(t, 0x80, kindTable16, grp1)
	grp1w := b.newTable16()
	for i, op := range aluOps {
		b.leafGroup(grp1w, i, newDesc(op, withModRM(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	}
	b.link(t, 0x81, kindTable16, grp1w)
	if mode == Mode32 {
		b.link(t, 0x82, kindTable16, grp1) // legacy alias of 80h; #UD in 64-bit
	}
	grp1s := b.newTable16()
	for i, op := range aluOps {
		b.leafGroup(grp1s, i, newDesc(op, withModRM(0, selOp, RegFileGPL), withImmSext8(1), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	}
	b.link(t, 0x83, kindTable16, grp1s)

	b.leaf(t, 0x84, newDesc(TEST, withModRM(0, selFix1, RegFileGPL), withModReg(1, selFix1, RegFileGPL), withFix1(1)))
	b.leaf(t, 0x85, newDesc(TEST, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0x86, newDesc(XCHG, withModRM(0, selFix1, RegFileGPL), withModReg(1, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.leaf(t, 0x87, newDesc(XCHG, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))

	b.leaf(t, 0x88, newDesc(MOV, withModRM(0, selFix1, RegFileGPL), withModReg(1, selFix1, RegFileGPL), withFix1(1)))
	b.leaf(t, 0x89, newDesc(MOV, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0x8a, newDesc(MOV, withModRM(1, selFix1, RegFileGPL), withModReg(0, selFix1, RegFileGPL), withFix1(1)))
	b.leaf(t, 0x8b, newDesc(MOV, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0x8d, newDesc(LEA, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))

	// 8F /0: POP Ev (grp1A).
	grp1a := b.newTable16()
	b.leafGroup(grp1a, 0, newDesc(POP, withModRM(0, selOp, RegFileGPL), withOpSize(opSize64), withInstrWidth()))
	b.link(t, 0x8f, kindTable16, grp1a)

	// 90-97: XCHG rAX, rXX -- opcode 0x90 alone is the NOP special case
	// resolved against NOP during final fixups (see XCHG_NOP in decode.go).
	for r := 0; r < 8; r++ {
		b.leaf(t, 0x90+r, newDesc(XCHG_NOP, withModRMSynth(0, selOp, RegFileGPL), withVexReg(1, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	}

	// A0-A3: MOV AL/eAX, moffs and reverse. The accumulator is always
	// register 0, so it goes through the implicit-register field.
	b.leaf(t, 0xa0, newDesc(MOV, withVexReg(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(2), withOpSize(opSizeByte)))
	b.leaf(t, 0xa1, newDesc(MOV, withVexReg(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(2), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xa2, newDesc(MOV, withVexReg(1, selOp, RegFileGPL), withImm(0, selOp), withImmControl(2), withOpSize(opSizeByte)))
	b.leaf(t, 0xa3, newDesc(MOV, withVexReg(1, selOp, RegFileGPL), withImm(0, selOp), withImmControl(2), withOpSize(opSizeCode2), withInstrWidth()))

	b.leaf(t, 0xa8, newDesc(TEST, withVexReg(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
	b.leaf(t, 0xa9, newDesc(TEST, withVexReg(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))

	// B0-B7 MOV r8, ib; B8-BF MOV/MOVABS r, iz/iv
	for r := 0; r < 8; r++ {
		b.leaf(t, 0xb0+r, newDesc(MOV, withModRMSynth(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
		b.leaf(t, 0xb8+r, newDesc(MOVABS, withModRMSynth(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	}

	// C0/C1 and D0-D3: shift/rotate grp2 by imm8, by 1, and by CL.
	shiftOps := []Mnemonic{ROL, ROR, RCL, RCR, SHL, SHR, SHL, SAR}
	grp2bi := b.newTable16()
	grp2vi := b.newTable16()
	grp2b1 := b.newTable16()
	grp2v1 := b.newTable16()
	grp2bc := b.newTable16()
	grp2vc := b.newTable16()
	for i, op := range shiftOps {
		b.leafGroup(grp2bi, i, newDesc(op, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
		b.leafGroup(grp2vi, i, newDesc(op, withModRM(0, selOp, RegFileGPL), withImmByte(1), withOpSize(opSizeCode2), withInstrWidth()))
		b.leafGroup(grp2b1, i, newDesc(op, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImm(1, selFix1), withImmControl(1)))
		b.leafGroup(grp2v1, i, newDesc(op, withModRM(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(1), withOpSize(opSizeCode2), withInstrWidth()))
		b.leafGroup(grp2bc, i, newDesc(op, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImplicitCL(1)))
		b.leafGroup(grp2vc, i, newDesc(op, withModRM(0, selOp, RegFileGPL), withFix1(1), withImplicitCL(1), withOpSize(opSizeCode2), withInstrWidth()))
	}
	b.link(t, 0xc0, kindTable16, grp2bi)
	b.link(t, 0xc1, kindTable16, grp2vi)
	b.link(t, 0xd0, kindTable16, grp2b1)
	b.link(t, 0xd1, kindTable16, grp2v1)
	b.link(t, 0xd2, kindTable16, grp2bc)
	b.link(t, 0xd3, kindTable16, grp2vc)

	b.leaf(t, 0xc2, newDesc(RET, withImm(0, selOp), withImmControl(5)))
	b.leaf(t, 0xc3, newDesc(RET))
	b.leaf(t, 0xc6, newDesc(MOV, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
	b.leaf(t, 0xc7, newDesc(MOV, withModRM(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xc8, newDesc(ENTER, withImm(0, selOp), withImmControl(5)))
	b.leaf(t, 0xc9, newDesc(LEAVE))
	b.leaf(t, 0xca, newDesc(RETF, withImm(0, selOp), withImmControl(5)))
	b.leaf(t, 0xcb, newDesc(RETF))
	b.leaf(t, 0xcc, newDesc(INT3))
	b.leaf(t, 0xcd, newDesc(INTN, withImmByte(0)))
	b.leaf(t, 0xcf, newDesc(IRET))

	b.leaf(t, 0xe3, relBranch(JCXZ, 6))
	b.leaf(t, 0xe8, relBranch(CALL, 7))
	b.leaf(t, 0xe9, relBranch(JMP, 7))
	b.leaf(t, 0xeb, relBranch(JMP, 6))

	b.leaf(t, 0xf4, newDesc(HLT))
	b.leaf(t, 0xf5, newDesc(CMC))
	b.leaf(t, 0xf8, newDesc(CLC))
	b.leaf(t, 0xf9, newDesc(STC))
	b.leaf(t, 0xfa, newDesc(CLI))
	b.leaf(t, 0xfb, newDesc(STI))
	b.leaf(t, 0xfc, newDesc(CLD))
	b.leaf(t, 0xfd, newDesc(STD))

	// F6/F7: grp3 TEST/NOT/NEG/MUL/IMUL/DIV/IDIV
	grp3b := b.newTable16()
	b.leafGroup(grp3b, 0, newDesc(TEST, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
	b.leafGroup(grp3b, 1, newDesc(TEST, withModRM(0, selFix1, RegFileGPL), withFix1(1), withImmByte(1)))
	b.leafGroup(grp3b, 2, newDesc(NOT, withModRM(0, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.leafGroup(grp3b, 3, newDesc(NEG, withModRM(0, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.leafGroup(grp3b, 4, newDesc(MUL, withModRM(0, selFix1, RegFileGPL), withFix1(1)))
	b.leafGroup(grp3b, 5, newDesc(IMUL, withModRM(0, selFix1, RegFileGPL), withFix1(1)))
	b.leafGroup(grp3b, 6, newDesc(DIV, withModRM(0, selFix1, RegFileGPL), withFix1(1)))
	b.leafGroup(grp3b, 7, newDesc(IDIV, withModRM(0, selFix1, RegFileGPL), withFix1(1)))
	b.link(t, 0xf6, kindTable16, grp3b)
	grp3w := b.newTable16()
	b.leafGroup(grp3w, 0, newDesc(TEST, withModRM(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 1, newDesc(TEST, withModRM(0, selOp, RegFileGPL), withImm(1, selOp), withImmControl(5), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 2, newDesc(NOT, withModRM(0, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 3, newDesc(NEG, withModRM(0, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 4, newDesc(MUL, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 5, newDesc(IMUL, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 6, newDesc(DIV, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp3w, 7, newDesc(IDIV, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.link(t, 0xf7, kindTable16, grp3w)

	// FE: INC/DEC Eb. FF: INC/DEC/CALL/CALLF/JMP/JMPF/PUSH grp5.
	grp4 := b.newTable16()
	b.leafGroup(grp4, 0, newDesc(INC, withModRM(0, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.leafGroup(grp4, 1, newDesc(DEC, withModRM(0, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.link(t, 0xfe, kindTable16, grp4)

	grp5 := b.newTable16()
	b.leafGroup(grp5, 0, newDesc(INC, withModRM(0, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp5, 1, newDesc(DEC, withModRM(0, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp5, 2, newDesc(CALL, withModRM(0, selOp, RegFileGPL), withOpSize(opSize64)))
	// Far transfers load a seg:offset pointer; the register form has no
	// meaning, so only the memory rows are populated.
	b.leaf(grp5, 3, newDesc(CALLF, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2)))
	b.leafGroup(grp5, 4, newDesc(JMP, withModRM(0, selOp, RegFileGPL), withOpSize(opSize64)))
	b.leaf(grp5, 5, newDesc(JMPF, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2)))
	b.leafGroup(grp5, 6, newDesc(PUSH, withModRM(0, selOp, RegFileGPL), withOpSize(opSize64), withInstrWidth()))
	b.link(t, 0xff, kindTable16, grp5)

	return t
}

// buildTwoByteTable installs a representative slice of the 0F opcode map.
func buildTwoByteTable(b *tableBuilder) int {
	t := b.newTable256()

	b.leaf(t, 0x0b, newDesc(UD2))

	// 0F 0F: 3DNow!, trailing byte consumed as the immediate; it is an
	// opcode extension, not an operand, so it has no operand slot, and
	// the final fixup in decode.go validates it against the legality
	// bitmap.
	b.leaf(t, 0x0f, newDesc(THREEDNOW, withModRM(1, selFix1, RegFileMMX), withModReg(0, selFix1, RegFileMMX), withFix1(4), withImmControl(4)))

	// 0F 10/11: the mandatory prefix selects between the four move
	// flavors sharing the opcode.
	mov10 := b.newTablePrefix()
	b.leaf(mov10, 0, newDesc(MOVUPS, withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(mov10, 1, newDesc(MOVUPD, withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(mov10, 2, newDesc(MOVSS, withModRM(1, selFix1, RegFileVec), withModReg(0, selOp, RegFileVec), withFix1(3), withOpSize(opSizeXMM)))
	b.leaf(mov10, 3, newDesc(MOVSD, withModRM(1, selFix1, RegFileVec), withModReg(0, selOp, RegFileVec), withFix1(4), withOpSize(opSizeXMM)))
	b.link(t, 0x10, kindTablePrefix, mov10)
	mov11 := b.newTablePrefix()
	b.leaf(mov11, 0, newDesc(MOVUPS, withModRM(0, selOp, RegFileVec), withModReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(mov11, 1, newDesc(MOVUPD, withModRM(0, selOp, RegFileVec), withModReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(mov11, 2, newDesc(MOVSS, withModRM(0, selFix1, RegFileVec), withModReg(1, selOp, RegFileVec), withFix1(3), withOpSize(opSizeXMM)))
	b.leaf(mov11, 3, newDesc(MOVSD, withModRM(0, selFix1, RegFileVec), withModReg(1, selOp, RegFileVec), withFix1(4), withOpSize(opSizeXMM)))
	b.link(t, 0x11, kindTablePrefix, mov11)

	// 0F 1F /0: multi-byte NOP Ev.
	grpNop := b.newTable16()
	b.leafGroup(grpNop, 0, newDesc(NOP, withModRM(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.link(t, 0x1f, kindTable16, grpNop)

	// 0F 20-23: MOV r32/64, CRn / DRn and reverse (register-direct only,
	// no real ModR/M memory form exists for these).
	b.leaf(t, 0x20, newDesc(MOV_CR, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileCR), withOpSize(opSize64)))
	b.leaf(t, 0x21, newDesc(MOV_DR, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileDR), withOpSize(opSize64)))
	b.leaf(t, 0x22, newDesc(MOV_CR, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileCR), withOpSize(opSize64)))
	b.leaf(t, 0x23, newDesc(MOV_DR, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileDR), withOpSize(opSize64)))

	// 0F 28/29: MOVAPS Vps,Wps / Wps,Vps (legacy SSE, no VEX prefix).
	b.leaf(t, 0x28, newDesc(MOVAPS, withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(t, 0x29, newDesc(MOVAPS, withModRM(0, selOp, RegFileVec), withModReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))

	// 0F 40-4F: CMOVcc Gv, Ev.
	for i := 0; i < 16; i++ {
		b.leaf(t, 0x40+i, newDesc(CMOVCC, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	}

	// SSE4a EXTRQ/INSERTQ (AMD). 0F 78 EXTRQ takes its two imm8s as a
	// single 16-bit immediate; 0F 79 INSERTQ is the register form with no
	// immediate. Neither goes through a mandatory-prefix table, so the
	// 66h/F2h prefix in front of them does not affect the decode.
	b.leaf(t, 0x78, newDesc(SSE_EXTRQ, withModRM(0, selOp, RegFileVec), withImm(1, selOp), withImmControl(5), withOpSize(opSizeXMM)))
	b.leaf(t, 0x79, newDesc(SSE_INSERTQ, withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withOpSize(opSizeXMM)))

	// 0F 80-8F: Jcc rel32/16.
	jcc := []Mnemonic{JO, JNO, JB, JAE, JE, JNE, JBE, JA, JS, JNS, JP, JNP, JL, JGE, JLE, JG}
	for i, m := range jcc {
		b.leaf(t, 0x80+i, newDesc(m, withImm(0, selOp), withImmControl(7)))
	}

	// 0F 90-9F: SETcc Eb.
	for i := 0; i < 16; i++ {
		b.leaf(t, 0x90+i, newDesc(SETCC, withModRM(0, selFix1, RegFileGPL), withFix1(1)))
	}

	b.leaf(t, 0xa2, newDesc(CPUID))
	b.leaf(t, 0xa3, newDesc(BT, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xa4, newDesc(SHLD, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withImmByte(2), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xa5, newDesc(SHLD, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withImplicitCL(2), withFix1(1), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xab, newDesc(BTS, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xac, newDesc(SHRD, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withImmByte(2), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xad, newDesc(SHRD, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withImplicitCL(2), withFix1(1), withOpSize(opSizeCode2), withInstrWidth()))

	// 0F AE: group 15. The memory rows hold CLFLUSH; the register rows
	// hold the fences, with SFENCE dispatched one level further through
	// an 8-way extension because all eight rm encodings are SFENCE.
	grp15 := b.newTable16()
	b.leaf(grp15, 7, newDesc(CLFLUSH, withModRM(0, selFix1, RegFileGPL), withFix1(1)))
	b.leaf(grp15, 8+5, newDesc(LFENCE, withModRMByte()))
	b.leaf(grp15, 8+6, newDesc(MFENCE, withModRMByte()))
	sfence := b.newTable8()
	b.leafRange(sfence, 0, 7, newDesc(SFENCE, withModRMByte()))
	b.link(grp15, 8+7, kindTable8Ext, sfence)
	b.link(t, 0xae, kindTable16, grp15)

	b.leaf(t, 0xb0, newDesc(CMPXCHG, withModRM(0, selFix1, RegFileGPL), withModReg(1, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.leaf(t, 0xb1, newDesc(CMPXCHG, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xb3, newDesc(BTR, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xb6, newDesc(MOVZX, withModRM(1, selFix1, RegFileGPL), withModReg(0, selOp, RegFileGPL), withFix1(1), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xb7, newDesc(MOVZX, withModRM(1, selFix2, RegFileGPL), withModReg(0, selOp, RegFileGPL), withFix2(2), withOpSize(opSizeCode2), withInstrWidth()))

	grp8 := b.newTable16()
	b.leafGroup(grp8, 4, newDesc(BT, withModRM(0, selOp, RegFileGPL), withImmByte(1), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp8, 5, newDesc(BTS, withModRM(0, selOp, RegFileGPL), withImmByte(1), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp8, 6, newDesc(BTR, withModRM(0, selOp, RegFileGPL), withImmByte(1), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leafGroup(grp8, 7, newDesc(BTC, withModRM(0, selOp, RegFileGPL), withImmByte(1), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.link(t, 0xba, kindTable16, grp8)

	b.leaf(t, 0xbb, newDesc(BTC, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xbc, newDesc(BSF, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xbd, newDesc(BSR, withModRM(1, selOp, RegFileGPL), withModReg(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xbe, newDesc(MOVSX, withModRM(1, selFix1, RegFileGPL), withModReg(0, selOp, RegFileGPL), withFix1(1), withOpSize(opSizeCode2), withInstrWidth()))
	b.leaf(t, 0xbf, newDesc(MOVSX, withModRM(1, selFix2, RegFileGPL), withModReg(0, selOp, RegFileGPL), withFix2(2), withOpSize(opSizeCode2), withInstrWidth()))

	b.leaf(t, 0xc0, newDesc(XADD, withModRM(0, selFix1, RegFileGPL), withModReg(1, selFix1, RegFileGPL), withFix1(1), withLock()))
	b.leaf(t, 0xc1, newDesc(XADD, withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL), withLock(), withOpSize(opSizeCode2), withInstrWidth()))
	for r := 0; r < 8; r++ {
		b.leaf(t, 0xc8+r, newDesc(BSWAP, withModRMSynth(0, selOp, RegFileGPL), withOpSize(opSizeCode2), withInstrWidth()))
	}

	return t
}

// buildMap0F38 and buildMap0F3A exist so the escape bytes resolve to a
// real table rather than "none" at the root; the legacy-encoded bulk of
// these maps (SSSE3/SSE4/BMI) is outside this build's coverage, so
// every opcode in them is #UD.
func buildMap0F38(b *tableBuilder) int {
	return b.newTable256()
}

func buildMap0F3A(b *tableBuilder) int {
	return b.newTable256()
}

// buildVexMap1 installs the VEX-encoded equivalent of the 0F map for
// the AVX subset this build covers.
func buildVexMap1(b *tableBuilder) int {
	t := b.newTable256()

	// VZEROUPPER/VZEROALL: 0F 77, no ModR/M, distinguished by VEX.L only,
	// dispatched via the W/L table (both forms ignore W). Step = W|(L<<1),
	// so L=0 (steps 0,1) is VZEROUPPER and L=1 (steps 2,3) is VZEROALL.
	vzero := b.newTableVex()
	b.leaf(vzero, 0, newDesc(VZEROUPPER))
	b.leaf(vzero, 1, newDesc(VZEROUPPER))
	b.leaf(vzero, 2, newDesc(VZEROALL))
	b.leaf(vzero, 3, newDesc(VZEROALL))
	b.link(t, 0x77, kindTableVex, vzero)

	b.leaf(t, 0x10, newDesc(VMOVUPS, withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(t, 0x11, newDesc(VMOVUPS, withModRM(0, selOp, RegFileVec), withModReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(t, 0x28, newDesc(VMOVAPS, withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(t, 0x29, newDesc(VMOVAPS, withModRM(0, selOp, RegFileVec), withModReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))

	b.leaf(t, 0x54, newDesc(VANDPS, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(t, 0x57, newDesc(VXORPS, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))

	// 0x58: the mandatory prefix picks the element type.
	vadd := b.newTablePrefix()
	b.leaf(vadd, 0, newDesc(VADDPS, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(vadd, 1, newDesc(VADDPD, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.link(t, 0x58, kindTablePrefix, vadd)

	b.leaf(t, 0x59, newDesc(VMULPS, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))
	b.leaf(t, 0x5c, newDesc(VSUBPS, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))

	// 0x6E/0x7E: VEX.W selects the 32- or 64-bit GP half; VEX.L=1 is
	// reserved, so the L=1 rows stay empty.
	movd := b.newTableVex()
	b.leaf(movd, 0, newDesc(VMOVD, withModRM(1, selFix1, RegFileGPL), withModReg(0, selOp, RegFileVec), withFix1(3)))
	b.leaf(movd, 1, newDesc(VMOVQ, withModRM(1, selFix1, RegFileGPL), withModReg(0, selOp, RegFileVec), withFix1(4)))
	b.link(t, 0x6e, kindTableVex, movd)
	movdr := b.newTableVex()
	b.leaf(movdr, 0, newDesc(VMOVD, withModRM(0, selFix1, RegFileGPL), withModReg(1, selOp, RegFileVec), withFix1(3)))
	b.leaf(movdr, 1, newDesc(VMOVQ, withModRM(0, selFix1, RegFileGPL), withModReg(1, selOp, RegFileVec), withFix1(4)))
	b.link(t, 0x7e, kindTableVex, movdr)

	b.leaf(t, 0xef, newDesc(VPXOR, withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM)))

	return t
}

func buildVexMap2(b *tableBuilder) int {
	t := b.newTable256()
	b.leaf(t, 0x18, newDesc(VBROADCASTSS, withModRM(1, selFix1, RegFileVec), withModReg(0, selOp, RegFileVec), withFix1(3), withOpSize(opSizeXMM)))
	return t
}

func buildVexMap3(b *tableBuilder) int {
	t := b.newTable256()
	// VBLENDVPS: RVMR encoding, the 4th operand (the blend mask) is
	// carried in imm8[7:4] via immControl 3 and lands in slot 3, the
	// index the immediate sub-field defaults to.
	b.leaf(t, 0x4a, newDesc(VBLENDVPS,
		withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec),
		withVexReg(1, selOp, RegFileVec), withImmControl(3),
		withOpSize(opSizeXMM)))
	return t
}

// buildEvexMap1 installs the EVEX-encoded 0F map: VADDPS/VADDPD with
// broadcast, masking and rounding control, and VMOVAPS with masking.
// The other arithmetic opcodes of the VEX map have no EVEX form here.
func buildEvexMap1(b *tableBuilder) int {
	t := b.newTable256()

	vadd := b.newTablePrefix()
	b.leaf(vadd, 0, newDesc(VADDPS,
		withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec),
		withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM),
		withEvexMask(), withEvexBroadcast(), withEvexSAE(), withEvexER()))
	b.leaf(vadd, 1, newDesc(VADDPD,
		withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec),
		withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM),
		withEvexMask(), withEvexBroadcast(), withEvexSAE(), withEvexER()))
	b.link(t, 0x58, kindTablePrefix, vadd)

	b.leaf(t, 0x28, newDesc(VMOVAPS,
		withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec),
		withOpSize(opSizeXMM), withEvexMask()))
	b.leaf(t, 0x29, newDesc(VMOVAPS,
		withModRM(0, selOp, RegFileVec), withModReg(1, selOp, RegFileVec),
		withOpSize(opSizeXMM), withEvexMask()))

	return t
}

// buildEvexMap2 covers the gather subset: VSIB addressing with a
// required non-zero mask.
func buildEvexMap2(b *tableBuilder) int {
	t := b.newTable256()
	b.leaf(t, 0x92, newDesc(VGATHERDPS,
		withModRM(1, selOp, RegFileVec), withModReg(0, selOp, RegFileVec),
		withOpSize(opSizeXMM), withEvexMask(), withVSIB()))
	return t
}
