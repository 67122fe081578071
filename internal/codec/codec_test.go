// internal/codec/codec_test.go
package codec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fixtures ----

const (
	fixtureSerial     = "NC-70-2505-01-0096-840"
	fixtureDeviceCode = "PS20-A1"
	fixtureTimestamp  = uint32(1718000000)
)

// fixtureRegs builds a 42-register image using the default relative offsets.
func fixtureRegs() []uint16 {
	regs := make([]uint16, 42)

	for i := 0; i <= 16; i++ {
		regs[i] = uint16(i * 100)
	}
	regs[3] = 0xFFFF // -1
	regs[5] = 0x8000 // -32768

	regs[17] = uint16(fixtureTimestamp >> 16)
	regs[18] = uint16(fixtureTimestamp & 0xFFFF)

	copy(regs[19:28], PackASCII(fixtureDeviceCode, 9))
	copy(regs[28:39], PackASCII(fixtureSerial, 11))

	regs[39] = 0xFFF6 // -10

	// 172.20.233.255
	regs[40] = 255<<8 | 233
	regs[41] = 20<<8 | 172

	return regs
}

// ---- ToSigned16 ----

func TestToSigned16_FullRange(t *testing.T) {
	for u := 0; u <= 0xFFFF; u++ {
		got := int(ToSigned16(uint16(u)))
		want := u
		if u >= 32768 {
			want = u - 65536
		}
		if got != want {
			t.Fatalf("ToSigned16(%d) = %d, want %d", u, got, want)
		}
		if got < -32768 || got > 32767 {
			t.Fatalf("ToSigned16(%d) = %d out of range", u, got)
		}
	}
}

func TestToSigned16_Boundaries(t *testing.T) {
	assert.Equal(t, int16(0), ToSigned16(0))
	assert.Equal(t, int16(32767), ToSigned16(32767))
	assert.Equal(t, int16(-32768), ToSigned16(32768))
	assert.Equal(t, int16(-1), ToSigned16(65535))
}

// ---- packed ASCII ----

func TestDecodePackedASCII(t *testing.T) {
	tests := []struct {
		name string
		regs []uint16
		want string
	}{
		{name: "two printable bytes", regs: []uint16{0x4142}, want: "AB"},
		{name: "both bytes non-printable", regs: []uint16{0x0000}, want: ""},
		{name: "trailing NUL dropped", regs: []uint16{0x4100}, want: "A"},
		{name: "leading NUL dropped", regs: []uint16{0x0042}, want: "B"},
		{name: "DEL and high bytes dropped", regs: []uint16{0x7F80, 0x7E20}, want: "~ "},
		{name: "mid-string gap shortens output", regs: []uint16{0x4142, 0x0000, 0x4344}, want: "ABCD"},
		{name: "boundaries kept", regs: []uint16{0x207E}, want: " ~"},
		{name: "just outside boundaries", regs: []uint16{0x1F7F}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(0, tt.regs)
			got, err := DecodePackedASCII(w, 0, len(tt.regs)-1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePackedASCII_Deterministic(t *testing.T) {
	w := NewWindow(0, fixtureRegs())

	first, err := DecodePackedASCII(w, 28, 38)
	require.NoError(t, err)
	second, err := DecodePackedASCII(w, 28, 38)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, fixtureSerial, first)
}

func TestDecodePackedASCII_OutOfRange(t *testing.T) {
	w := NewWindow(0, []uint16{0x4142, 0x4344})

	_, err := DecodePackedASCII(w, 1, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecodeAnomaly))

	_, err = DecodePackedASCII(w, -1, 0)
	assert.ErrorIs(t, err, ErrDecodeAnomaly)
}

// ---- timestamp / ip ----

func TestDecodeTimestamp(t *testing.T) {
	w := NewWindow(0, []uint16{0x0001, 0x0002})
	got, err := DecodeTimestamp(w, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(65538), got)

	w = NewWindow(0, []uint16{0xFFFF, 0xFFFF})
	got, err = DecodeTimestamp(w, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), got)
}

func TestDecodeIPv4_OctetOrder(t *testing.T) {
	// a.hi=octet4 a.lo=octet3 b.hi=octet2 b.lo=octet1, printed octet1 first.
	// 0x0201,0x0403 is "3.4.1.2", not "4.3.2.1": the latter reverses the
	// octet mapping the devices use. Keep this order.
	w := NewWindow(0, []uint16{0x0201, 0x0403})
	got, err := DecodeIPv4(w, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "3.4.1.2", got)

	w = NewWindow(0, []uint16{0x0102, 0x0304})
	got, err = DecodeIPv4(w, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "4.3.2.1", got)
}

func TestDecodeIPv4_Fixture(t *testing.T) {
	w := NewWindow(0, fixtureRegs())
	got, err := DecodeIPv4(w, 40, 41)
	require.NoError(t, err)
	assert.Equal(t, "172.20.233.255", got)
}

func TestPackASCII_Truncates(t *testing.T) {
	regs := PackASCII("ABCDE", 2)
	assert.Equal(t, []uint16{0x4142, 0x4344}, regs)

	regs = PackASCII("A", 2)
	assert.Equal(t, []uint16{0x4100, 0x0000}, regs)
}

// ---- layout ----

func TestLayout_Extent(t *testing.T) {
	assert.Equal(t, 42, DefaultLayout("gen0", 0).Extent())
	assert.NoError(t, DefaultLayout("gen0", 0).Check())
}

func TestLayout_DecodeFixture(t *testing.T) {
	l := DefaultLayout("gen0", 0)

	r, err := l.Decode(NewWindow(0, fixtureRegs()))
	require.NoError(t, err)

	want := Identity{
		Serial:     fixtureSerial,
		DeviceCode: fixtureDeviceCode,
		IP:         "172.20.233.255",
		Timestamp:  fixtureTimestamp,
	}
	if diff := cmp.Diff(want, r.Identity); diff != "" {
		t.Fatalf("identity mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, r.Data, 18)
	assert.Equal(t, 0, r.Data[0].Offset)
	assert.Equal(t, int16(-1), r.Data[3].Signed())
	assert.Equal(t, uint16(0xFFFF), r.Data[3].Value)
	assert.Equal(t, int16(-32768), r.Data[5].Signed())
	assert.Equal(t, 39, r.Data[17].Offset)
	assert.Equal(t, int16(-10), r.Data[17].Signed())

	assert.Len(t, r.Raw, 42)
	assert.Equal(t, "840", r.Identity.SerialSuffix())
}

func TestLayout_GenerationsAgreeOnSamePhysicalWindow(t *testing.T) {
	phys := fixtureRegs()

	gen0 := DefaultLayout("gen0", 0)
	gen1 := DefaultLayout("gen1", 1)

	// Same device memory, read at address 0 by one generation and address 1 by the other.
	r0, err := gen0.Decode(NewWindow(0, phys))
	require.NoError(t, err)
	r1, err := gen1.Decode(NewWindow(1, phys))
	require.NoError(t, err)

	if diff := cmp.Diff(r0, r1); diff != "" {
		t.Fatalf("generations disagree (-gen0 +gen1):\n%s", diff)
	}
}

func TestLayout_BaseMismatchDetected(t *testing.T) {
	gen1 := DefaultLayout("gen1", 1)

	_, err := gen1.Decode(NewWindow(0, fixtureRegs()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBaseMismatch)
}

func TestLayout_ShiftedWindowChangesIdentity(t *testing.T) {
	// A 1-indexed device read from address 0 yields one leading register the
	// layout does not expect. Decoding must not silently reproduce the identity.
	shifted := append([]uint16{0}, fixtureRegs()...)

	r, err := DefaultLayout("gen0", 0).Decode(NewWindow(0, shifted))
	require.NoError(t, err)
	assert.NotEqual(t, fixtureSerial, r.Identity.Serial)
	assert.NotEqual(t, "172.20.233.255", r.Identity.IP)
}

func TestLayout_ShortWindowIsAnomaly(t *testing.T) {
	l := DefaultLayout("gen0", 0)

	_, err := l.Decode(NewWindow(0, fixtureRegs()[:30]))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecodeAnomaly)

	_, err = l.Decode(NewWindow(0, nil))
	assert.ErrorIs(t, err, ErrDecodeAnomaly)
}

func TestLayout_CheckRejectsInvertedSpan(t *testing.T) {
	l := DefaultLayout("bad", 0)
	l.Serial = Span{Start: 38, End: 28}
	assert.Error(t, l.Check())

	l = DefaultLayout("bad", 0)
	l.Extra = []int{-1}
	assert.Error(t, l.Check())
}

func TestWindow_SliceCopies(t *testing.T) {
	w := NewWindow(1, []uint16{1, 2, 3})

	s, err := w.Slice(0, 1)
	require.NoError(t, err)
	s[0] = 99

	v, err := w.At(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), v)
	assert.Equal(t, 2, w.Address(1))
}
