package gfield

const (
	fieldSize = 256

	// x^8 + x^4 + x^3 + x^2 + 1.
	polynomial = 0x11d
)

var (
	// expTable is doubled in length so that Mul can skip the modulo.
	expTable [2 * fieldSize]byte
	logTable [fieldSize]byte
)

func init() {
	x := 1
	for i := 0; i < fieldSize-1; i++ {
		expTable[i] = byte(x)
		logTable[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= polynomial
		}
	}
	for i := fieldSize - 1; i < len(expTable); i++ {
		expTable[i] = expTable[i-(fieldSize-1)]
	}
}

// Add returns a+b in GF(2^8), which is also a-b.
func Add(a, b byte) byte {
	return a ^ b
}

// Mul returns a*b in GF(2^8).
func Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

// Div returns a/b in GF(2^8).
// Division by zero panics.
func Div(a, b byte) byte {
	if b == 0 {
		panic("BUG: division by zero in GF(2^8)")
	}
	if a == 0 {
		return 0
	}
	idx := int(logTable[a]) - int(logTable[b])
	if idx < 0 {
		idx += fieldSize - 1
	}
	return expTable[idx]
}

// Inv returns the multiplicative inverse of a.
func Inv(a byte) byte {
	return Div(1, a)
}

// Exp returns a raised to the n-th power.
func Exp(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	return expTable[(int(logTable[a])*n)%(fieldSize-1)]
}

// mulAddSlice sets out[i] ^= c*in[i] for every i in [start, end).
func mulAddSlice(c byte, in, out []byte, start, end int) {
	switch c {
	case 0:
		return
	case 1:
		for i := start; i < end; i++ {
			out[i] ^= in[i]
		}
		return
	}

	logC := int(logTable[c])
	for i := start; i < end; i++ {
		if v := in[i]; v != 0 {
			out[i] ^= expTable[logC+int(logTable[v])]
		}
	}
}
