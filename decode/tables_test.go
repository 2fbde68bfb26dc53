package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The builder output is a closed structure: every inner entry must
// point back into the table and every leaf into the descriptor array.
func TestTableIntegrity(t *testing.T) {
	require.True(t, rootOffsetsSet)
	require.NotEmpty(t, table)
	require.NotEmpty(t, descs)
	require.Less(t, rootOffset32+tableRootEntries, len(table)+1)
	require.Less(t, rootOffset64+tableRootEntries, len(table)+1)

	for i, e := range table {
		kind := entryKindOf(e)
		idx := entryIndexOf(e)
		switch kind {
		case kindNone:
			require.Zero(t, idx, "none entry %d carries an index", i)
		case kindInstr:
			require.Less(t, idx, len(descs), "leaf %d out of descriptor range", i)
		case kindTable256, kindTable16, kindTable8Ext, kindTablePrefix, kindTableVex:
			require.Less(t, idx, len(table), "inner entry %d out of table range", i)
		default:
			t.Fatalf("entry %d has invalid kind %d", i, kind)
		}
	}
}

func TestEntryPacking(t *testing.T) {
	e := makeEntry(kindTable256, 1234)
	require.Equal(t, kindTable256, entryKindOf(e))
	require.Equal(t, 1234, entryIndexOf(e))
	require.Panics(t, func() { makeEntry(kindInstr, 0x2000) })
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := newDesc(ADD,
		withModRM(0, selOp, RegFileGPL), withModReg(1, selOp, RegFileGPL),
		withLock(), withOpSize(opSizeCode2), withInstrWidth())

	require.Equal(t, ADD, d.Type)
	idx, ok := d.modrmIdx()
	require.True(t, ok)
	require.Equal(t, 0, idx)
	idx, ok = d.modregIdx()
	require.True(t, ok)
	require.Equal(t, 1, idx)
	_, ok = d.vexregIdx()
	require.False(t, ok)
	require.True(t, d.hasModRM())
	require.True(t, d.mayLock())
	require.True(t, d.instrWidthFlag())
	require.Equal(t, opSizeCode2, d.opSizeCode())
	require.Equal(t, 0, d.immControl())
}

func TestDescriptorImmDefaultsToSlot3(t *testing.T) {
	// The immediate index sub-field has no absent encoding; an
	// unspecified slot means slot 3, which the RVMR encodings rely on.
	d := newDesc(VBLENDVPS, withModRM(2, selOp, RegFileVec),
		withModReg(0, selOp, RegFileVec), withVexReg(1, selOp, RegFileVec),
		withImmControl(3), withOpSize(opSizeXMM))
	require.Equal(t, 3, d.immIdx())
	require.Equal(t, 3, d.immControl())

	d = newDesc(INTN, withImmByte(0))
	require.Equal(t, 0, d.immIdx())
	require.Equal(t, 4, d.immControl())
	require.True(t, d.immIsFixedByte())
}

func TestDescriptorEvexFlags(t *testing.T) {
	d := newDesc(VADDPS,
		withModRM(2, selOp, RegFileVec), withModReg(0, selOp, RegFileVec),
		withVexReg(1, selOp, RegFileVec), withOpSize(opSizeXMM),
		withEvexMask(), withEvexBroadcast(), withEvexSAE(), withEvexER())
	require.True(t, d.evexMask())
	require.True(t, d.evexBroadcast())
	require.True(t, d.evexSAE())
	require.True(t, d.evexER())
	require.False(t, d.evexBcst16())
	require.False(t, d.usesVSIB())
	require.Equal(t, RegFileVec, d.regTypeModRM())
	require.Equal(t, RegFileVec, d.regTypeModReg())
	require.Equal(t, RegFileVec, d.regTypeVexReg())
}

func TestFixedSizeFields(t *testing.T) {
	d := newDesc(MOVZX, withModRM(1, selFix2, RegFileGPL),
		withModReg(0, selOp, RegFileGPL), withFix2(2), withOpSize(opSizeCode2))
	require.Equal(t, uint8(2), d.fix2())

	d = newDesc(MOV, withModRM(0, selFix1, RegFileGPL), withFix1(1))
	require.Equal(t, uint8(1), d.fix1())
}

// Both roots must dispatch every escape index somewhere sane: a table
// for the maps this build covers, none for the rest.
func TestRootDispatch(t *testing.T) {
	covered := map[int]bool{
		escPlain: true, esc0F: true, esc0F38: true, esc0F3A: true,
		escVex0F: true, escVex0F38: true, escVex0F3A: true,
		escEvex0F: true, escEvex0F38: true,
	}
	for _, root := range []int{rootOffset32, rootOffset64} {
		for step := 0; step < tableRootEntries; step++ {
			_, kind := tableWalk(root, step)
			if covered[step] {
				require.Equal(t, kindTable256, kind, "root step %d", step)
			} else {
				require.Equal(t, kindNone, kind, "root step %d", step)
			}
		}
	}
}
