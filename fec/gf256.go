package fec

import "sync"

// GF(256) arithmetic using log/antilog tables with primitive polynomial 0x11d
// and generator 0x02, plus a full multiplication table for the slice kernels.

const fieldPoly = 0x11d

// Field holds the precomputed GF(256) tables. A Field is never modified after
// construction, so one instance is shared by every Context.
type Field struct {
	exp [512]byte
	log [256]byte
	mul [256][256]byte
}

// GF256 returns the shared field instance, building its tables on first use.
var GF256 = sync.OnceValue(newField)

func newField() *Field {
	f := new(Field)
	x := 1
	for i := 0; i < 255; i++ {
		f.exp[i] = byte(x)
		f.log[byte(x)] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= fieldPoly
		}
	}
	for i := 255; i < 512; i++ {
		f.exp[i] = f.exp[i-255]
	}
	for a := 1; a < 256; a++ {
		la := int(f.log[a])
		for b := 1; b < 256; b++ {
			f.mul[a][b] = f.exp[la+int(f.log[b])]
		}
	}
	return f
}

// Mul returns a*b.
func (f *Field) Mul(a, b byte) byte {
	return f.mul[a][b]
}

// Div returns a/b. b must not be zero.
func (f *Field) Div(a, b byte) byte {
	if b == 0 {
		panic("fec: division by zero in GF(256)")
	}
	if a == 0 {
		return 0
	}
	return f.exp[int(f.log[a])+255-int(f.log[b])]
}

// Inv returns the multiplicative inverse of a. a must not be zero.
func (f *Field) Inv(a byte) byte {
	if a == 0 {
		panic("fec: zero has no inverse in GF(256)")
	}
	return f.exp[255-int(f.log[a])]
}

// Exp returns a raised to the n-th power, with 0^0 = 1.
func (f *Field) Exp(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	e := (int(f.log[a]) * n) % 255
	return f.exp[e]
}

// mulSlice sets out[i] = c*in[i].
func (f *Field) mulSlice(c byte, in, out []byte) {
	switch c {
	case 0:
		clear(out[:len(in)])
		return
	case 1:
		copy(out, in)
		return
	}
	mt := &f.mul[c]
	out = out[:len(in)]
	for i, v := range in {
		out[i] = mt[v]
	}
}

// mulSliceXor sets out[i] ^= c*in[i].
func (f *Field) mulSliceXor(c byte, in, out []byte) {
	switch c {
	case 0:
		return
	case 1:
		xorBytes(out, in)
		return
	}
	mt := &f.mul[c]
	out = out[:len(in)]
	for i, v := range in {
		out[i] ^= mt[v]
	}
}

func xorBytes(dst, src []byte) {
	dst = dst[:len(src)]
	for i := range src {
		dst[i] ^= src[i]
	}
}
