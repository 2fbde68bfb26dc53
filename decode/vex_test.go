package decode

import "testing"

func TestVzeroupper(t *testing.T) {
	in, n := decode64(t, []byte{0xc5, 0xf8, 0x77})
	if n != 3 || in.Type != VZEROUPPER {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	// The L=1 form of the same opcode is VZEROALL.
	in, _ = decode64(t, []byte{0xc5, 0xfc, 0x77})
	if in.Type != VZEROALL {
		t.Errorf("got %v, want VZEROALL", in.Type)
	}
}

func TestVexArith(t *testing.T) {
	// VADDPS XMM2, XMM1, XMM3 (2-byte VEX, vvvv=1)
	in, n := decode64(t, []byte{0xc5, 0xf0, 0x58, 0xd3})
	if n != 4 || in.Type != VADDPS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	regs := []uint8{2, 1, 3}
	for i, r := range regs {
		op := in.Operands[i]
		if op.Kind != OperandRegister || op.Reg != r || op.Size != 5 {
			t.Errorf("operand %d = %+v, want xmm%d", i, op, r)
		}
	}
	// VEX.L=1 widens everything to 256 bits.
	in, _ = decode64(t, []byte{0xc5, 0xf4, 0x58, 0xd3})
	if in.Operands[0].Size != 6 {
		t.Errorf("ymm operand size = %d, want 6", in.Operands[0].Size)
	}
	// The 66h mandatory prefix flips the element type.
	in, _ = decode64(t, []byte{0xc5, 0xf1, 0x58, 0xd3})
	if in.Type != VADDPD {
		t.Errorf("pp=01 form = %v, want VADDPD", in.Type)
	}
}

func TestVexThreeByte(t *testing.T) {
	// VADDPS with a 3-byte VEX and REX.B extending the source: the
	// second byte's inverted R/X/B land on the ModR/M registers.
	// C4 C1 70 58 D3 = VADDPS XMM2, XMM1, XMM11
	in, n := decode64(t, []byte{0xc4, 0xc1, 0x70, 0x58, 0xd3})
	if n != 5 || in.Type != VADDPS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	if in.Operands[2].Reg != 11 {
		t.Errorf("operand 2 = %+v, want xmm11", in.Operands[2])
	}
}

func TestVexUnusedVVVV(t *testing.T) {
	// VMOVUPS does not take a vvvv operand, so a nonzero field is #UD.
	in, _ := decode64(t, []byte{0xc5, 0xf8, 0x10, 0xc1})
	if in.Type != VMOVUPS {
		t.Fatalf("got %v, want VMOVUPS", in.Type)
	}
	expectUD(t, []byte{0xc5, 0xb8, 0x10, 0xc1}, Mode64)
}

func TestVexWithLegacyPrefixes(t *testing.T) {
	// 66/F3/F2/REX before VEX or EVEX is #UD.
	expectUD(t, []byte{0x66, 0xc5, 0xf8, 0x77}, Mode64)
	expectUD(t, []byte{0xf3, 0xc5, 0xf8, 0x77}, Mode64)
	expectUD(t, []byte{0x48, 0xc5, 0xf8, 0x77}, Mode64)
	expectUD(t, []byte{0x48, 0x62, 0xf1, 0x7c, 0x48, 0x58, 0xc1}, Mode64)
}

func TestVexMap3ByteWSelect(t *testing.T) {
	// The W bit distinguishes VMOVD from VMOVQ on the same opcode.
	in, n := decode64(t, []byte{0xc5, 0xf9, 0x6e, 0xc0})
	if n != 4 || in.Type != VMOVD || in.Operands[1].Size != 3 {
		t.Fatalf("got %v %+v size %d", in.Type, in.Operands[1], n)
	}
	in, n = decode64(t, []byte{0xc4, 0xe1, 0xf9, 0x7e, 0xc0})
	if n != 5 || in.Type != VMOVQ {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	if in.Operands[0].Size != 4 || in.Operands[0].Misc != uint8(RegFileGPL) {
		t.Errorf("operand 0 = %+v, want 64-bit GP", in.Operands[0])
	}
	// VEX.L=1 rows of this opcode are reserved.
	expectUD(t, []byte{0xc4, 0xe1, 0xfd, 0x7e, 0xc0}, Mode64)
}

func TestVexBroadcast(t *testing.T) {
	// VBROADCASTSS XMM1, [RAX]: map 2, dword memory source.
	in, n := decode64(t, []byte{0xc4, 0xe2, 0x79, 0x18, 0x08})
	if n != 5 || in.Type != VBROADCASTSS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	if in.Operands[1].Kind != OperandMemory || in.Operands[1].Size != 3 {
		t.Errorf("operand 1 = %+v, want dword memory", in.Operands[1])
	}
	// The bad map field values of a 3-byte VEX are #UD.
	expectUD(t, []byte{0xc4, 0xe0, 0x79, 0x18, 0x08}, Mode64)
}

func TestVblendvps(t *testing.T) {
	// VBLENDVPS XMM1, XMM2, XMM3, XMM4: the fourth register rides in
	// imm8[7:4].
	in, n := decode64(t, []byte{0xc4, 0xe3, 0x69, 0x4a, 0xcb, 0x40})
	if n != 6 || in.Type != VBLENDVPS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	regs := []uint8{1, 2, 3, 4}
	for i, r := range regs {
		op := in.Operands[i]
		if op.Kind != OperandRegister || op.Reg != r {
			t.Errorf("operand %d = %+v, want xmm%d", i, op, r)
		}
	}
	if in.Imm != 0 {
		t.Errorf("imm nibble = %d, want 0", in.Imm)
	}
}

func TestVexFallthrough32(t *testing.T) {
	// In 32-bit mode C4/C5/62 are only VEX/EVEX when the next byte's
	// top two bits are set; otherwise they fall through to the plain
	// opcode path (LES/LDS/BOUND, none of which this build defines).
	expectUD(t, []byte{0xc5, 0x18, 0x10}, Mode32)
	expectUD(t, []byte{0xc4, 0x18, 0x10, 0x00}, Mode32)
	// With the top bits set it really is VEX.
	in, _ := decode32(t, []byte{0xc5, 0xf8, 0x77})
	if in.Type != VZEROUPPER {
		t.Errorf("got %v, want VZEROUPPER", in.Type)
	}
}

func TestEvexVaddpsZmm(t *testing.T) {
	// VADDPS ZMM0, ZMM0, ZMM1 (EVEX.512)
	in, n := decode64(t, []byte{0x62, 0xf1, 0x7c, 0x48, 0x58, 0xc1})
	if n != 6 || in.Type != VADDPS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	if in.Evex == 0 {
		t.Error("Evex = 0 despite EVEX prefix")
	}
	regs := []uint8{0, 0, 1}
	for i, r := range regs {
		op := in.Operands[i]
		if op.Kind != OperandRegister || op.Reg != r || op.Size != 7 {
			t.Errorf("operand %d = %+v, want zmm%d", i, op, r)
		}
	}
}

func TestEvexMasking(t *testing.T) {
	// VADDPS ZMM0{k3}, ZMM0, ZMM1
	in, _ := decode64(t, []byte{0x62, 0xf1, 0x7c, 0x4b, 0x58, 0xc1})
	if in.Evex&0x7 != 3 {
		t.Errorf("mask index = %d, want 3", in.Evex&0x7)
	}
	// Zeroing-masking sets bit 7.
	in, _ = decode64(t, []byte{0x62, 0xf1, 0x7c, 0xcb, 0x58, 0xc1})
	if in.Evex&0x80 == 0 {
		t.Error("z bit not reported")
	}
	// EVEX.z without a mask register is #UD.
	expectUD(t, []byte{0x62, 0xf1, 0x7c, 0xc8, 0x58, 0xc1}, Mode64)
}

func TestEvexBroadcastMem(t *testing.T) {
	// VADDPS ZMM1, ZMM0, dword [RAX]{1to16}
	in, n := decode64(t, []byte{0x62, 0xf1, 0x7c, 0x58, 0x58, 0x08})
	if n != 6 {
		t.Fatalf("size %d", n)
	}
	if in.Operands[2].Kind != OperandMemoryBroadcast {
		t.Fatalf("operand 2 = %+v, want broadcast memory", in.Operands[2])
	}
	if in.Segment.BroadcastLog2Size() != 2 {
		t.Errorf("broadcast element log2 = %d, want 2 (dword)", in.Segment.BroadcastLog2Size())
	}
	// EVEX.W makes the element a qword.
	in, _ = decode64(t, []byte{0x62, 0xf1, 0xfd, 0x58, 0x58, 0x08})
	if in.Type != VADDPD || in.Segment.BroadcastLog2Size() != 3 {
		t.Errorf("got %v element log2 %d", in.Type, in.Segment.BroadcastLog2Size())
	}
	// Broadcast on a register form is rounding control, not broadcast;
	// broadcast against a descriptor without broadcast support is #UD.
	expectUD(t, []byte{0x62, 0xf1, 0x7c, 0x58, 0x28, 0x08}, Mode64) // VMOVAPS has no broadcast
}

func TestEvexCompressedDisp8(t *testing.T) {
	// VADDPS ZMM1, ZMM0, [RSP+0x40]: disp8 is scaled by the 64-byte
	// operand size.
	in, n := decode64(t, []byte{0x62, 0xf1, 0x7c, 0x48, 0x58, 0x4c, 0x24, 0x01})
	if n != 8 {
		t.Fatalf("size %d", n)
	}
	if in.Disp != 64 {
		t.Errorf("disp = %d, want 64", in.Disp)
	}
	// With broadcast active the scale is the element size instead.
	in, _ = decode64(t, []byte{0x62, 0xf1, 0x7c, 0x58, 0x58, 0x4c, 0x24, 0x01})
	if in.Disp != 4 {
		t.Errorf("broadcast disp = %d, want 4", in.Disp)
	}
}

func TestEvexRounding(t *testing.T) {
	// VADDPS ZMM0, ZMM0, ZMM1, {rd-sae}: EVEX.b on a register form
	// selects rounding; the L'L field is the rounding mode and the
	// operands are forced to 512 bits.
	in, n := decode64(t, []byte{0x62, 0xf1, 0x7c, 0x38, 0x58, 0xc1})
	if n != 6 {
		t.Fatalf("size %d", n)
	}
	if in.Operands[0].Size != 7 {
		t.Errorf("operand size = %d, want 7 (forced 512)", in.Operands[0].Size)
	}
	if in.Evex&0x60 != 0x20 || in.Evex&0x10 == 0 {
		t.Errorf("evex = %#x, want RC=1 and b set", in.Evex)
	}
	// EVEX.b on a register form of an instruction without SAE is #UD.
	expectUD(t, []byte{0x62, 0xf1, 0x7c, 0x58, 0x28, 0xc8}, Mode64)
	// Without EVEX.b, L'L=11 is #UD.
	expectUD(t, []byte{0x62, 0xf1, 0x7c, 0x68, 0x58, 0xc1}, Mode64)
}

func TestEvexZWithMemoryDestination(t *testing.T) {
	// VMOVAPS [RAX]{k1}{z}, ZMM1: zeroing into memory is #UD.
	expectUD(t, []byte{0x62, 0xf1, 0x7c, 0xc9, 0x29, 0x08}, Mode64)
	// The merging form is fine.
	in, n := decode64(t, []byte{0x62, 0xf1, 0x7c, 0x49, 0x29, 0x08})
	if n != 6 || in.Type != VMOVAPS || in.Operands[0].Kind != OperandMemory {
		t.Fatalf("got %v %+v size %d", in.Type, in.Operands[0], n)
	}
}

func TestEvexRegisterExtension(t *testing.T) {
	// EVEX.X extends the register-form ModR/M register to zmm17:
	// VADDPS ZMM0, ZMM0, ZMM17.
	in, _ := decode64(t, []byte{0x62, 0xb1, 0x7c, 0x48, 0x58, 0xc1})
	if in.Operands[2].Reg != 17 {
		t.Errorf("operand 2 = %+v, want zmm17", in.Operands[2])
	}
	// EVEX.R and R' together extend the ModReg register to zmm24.
	in, _ = decode64(t, []byte{0x62, 0x61, 0x7c, 0x48, 0x58, 0xc1})
	if in.Operands[0].Reg != 16+8 {
		t.Errorf("operand 0 = %+v, want zmm24", in.Operands[0])
	}
	// V' extends vvvv: VADDPS ZMM0, ZMM16, ZMM1.
	in, _ = decode64(t, []byte{0x62, 0xf1, 0x7c, 0x40, 0x58, 0xc1})
	if in.Operands[1].Reg != 16 {
		t.Errorf("operand 1 = %+v, want zmm16", in.Operands[1])
	}
}

func TestEvexGather(t *testing.T) {
	// VGATHERDPS ZMM1{k1}, [RAX+ZMM1*2]
	in, n := decode64(t, []byte{0x62, 0xf2, 0x7d, 0x49, 0x92, 0x0c, 0x48})
	if n != 7 || in.Type != VGATHERDPS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	if in.Evex&0x7 != 1 {
		t.Errorf("mask = %d, want k1", in.Evex&0x7)
	}
	mem := in.Operands[1]
	if mem.Kind != OperandMemory || mem.Reg != 0 || mem.Misc != (1<<6)|1 {
		t.Errorf("memory operand = %+v", mem)
	}
	// Gathers require a mask...
	expectUD(t, []byte{0x62, 0xf2, 0x7d, 0x48, 0x92, 0x0c, 0x48}, Mode64)
	// ...and a SIB byte...
	expectUD(t, []byte{0x62, 0xf2, 0x7d, 0x49, 0x92, 0x08}, Mode64)
	// ...and zeroing-masking is never allowed.
	expectUD(t, []byte{0x62, 0xf2, 0x7d, 0xc9, 0x92, 0x0c, 0x48}, Mode64)
	// vvvv must be zero once V' is folded into the index.
	expectUD(t, []byte{0x62, 0xf2, 0x75, 0x49, 0x92, 0x0c, 0x48}, Mode64)
}

func TestEvexIn32BitMode(t *testing.T) {
	// EVEX works in 32-bit mode, with R/X/B/R' forced off and the
	// encoded V' bit required to be set.
	in, n := decode32(t, []byte{0x62, 0xf1, 0x7c, 0x48, 0x58, 0xc1})
	if n != 6 || in.Type != VADDPS {
		t.Fatalf("got %v size %d", in.Type, n)
	}
	if in.Evex == 0 {
		t.Error("Evex = 0 despite EVEX prefix")
	}
	// Clearing the encoded V' bit is #UD in 32-bit mode.
	expectUD(t, []byte{0x62, 0xf1, 0x7c, 0x40, 0x58, 0xc1}, Mode32)
}

func TestEvexReservedBits(t *testing.T) {
	// Second-byte bit 3 must be clear.
	expectUD(t, []byte{0x62, 0xf9, 0x7c, 0x48, 0x58, 0xc1}, Mode64)
	// Third-byte bit 2 must be set.
	expectUD(t, []byte{0x62, 0xf1, 0x78, 0x48, 0x58, 0xc1}, Mode64)
}
