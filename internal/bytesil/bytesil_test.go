package bytesil

import (
	"math/cmplx"
	"testing"
)

func TestU8RoundTrip(t *testing.T) {
	for rho := -8; rho <= 7; rho++ {
		for theta := 0; theta <= 15; theta++ {
			z := New(rho, theta)
			got := FromU8(z.ToU8())
			if !Equal(got, z) {
				t.Fatalf("round trip rho=%d theta=%d: got %v want %v", rho, theta, got, z)
			}
		}
	}
}

func TestMulNullAbsorbs(t *testing.T) {
	xs := []ByteSil{One, I, Max, New(3, 7)}
	for _, x := range xs {
		if !Equal(Mul(Null, x), Null) {
			t.Errorf("Null*x != Null for x=%v", x)
		}
		if !Equal(Mul(x, Null), Null) {
			t.Errorf("x*Null != Null for x=%v", x)
		}
	}
}

func TestMulLogPolar(t *testing.T) {
	a := New(5, 9)
	b := New(4, 10)
	got := Mul(a, b)
	wantRho := clampRho(5 + 4)
	wantTheta := wrapTheta(9 + 10)
	if got.Rho != wantRho || got.Theta != wantTheta {
		t.Fatalf("got %v, want rho=%d theta=%d", got, wantRho, wantTheta)
	}
}

func TestInverse(t *testing.T) {
	for rho := -7; rho <= 7; rho++ { // skip Null
		for theta := 0; theta <= 15; theta++ {
			z := New(rho, theta)
			inv := Inv(z)
			prod := Mul(z, inv)
			if prod.Rho != 0 || prod.Theta != 0 {
				t.Fatalf("z=%v inv=%v prod=%v, want ONE (modulo saturation)", z, inv, prod)
			}
		}
	}
}

func TestPowAgreesWithRepeatedMul(t *testing.T) {
	z := New(1, 3)
	acc := One
	for n := 0; n <= 8; n++ {
		got := Pow(z, n)
		if got.Rho != acc.Rho || got.Theta != acc.Theta {
			t.Fatalf("n=%d: Pow=%v repeated-mul=%v", n, got, acc)
		}
		acc = Mul(acc, z)
	}
}

func TestDivByZero(t *testing.T) {
	_, err := Div(One, Null)
	if err != ErrDivByZero {
		t.Fatalf("got err=%v, want ErrDivByZero", err)
	}
}

func TestXorIdentityUnderZero(t *testing.T) {
	z := New(5, 3)
	got := Xor(z, FromU8(0x00))
	if !Equal(got, z) {
		t.Fatalf("xor with 0x00 changed value: got %v want %v", got, z)
	}
}

func TestComplexRoundTripWithinQuantization(t *testing.T) {
	z := New(2, 5)
	c := z.ToComplex()
	back := FromComplex(c)
	if !Equal(back, z) {
		t.Fatalf("complex round trip: got %v want %v", back, z)
	}
}

func TestFromComplexZeroIsNull(t *testing.T) {
	if !Equal(FromComplex(0), Null) {
		t.Fatalf("FromComplex(0) must be Null")
	}
}

func TestConjPreservesMagnitude(t *testing.T) {
	z := New(3, 5)
	c := Conj(z)
	if c.Rho != z.Rho {
		t.Fatalf("Conj changed rho: %v -> %v", z, c)
	}
	gotPhase := cmplx.Phase(c.ToComplex())
	wantPhase := -cmplx.Phase(z.ToComplex())
	// normalize into (-pi, pi] comparison isn't exact across wrap; check via theta instead
	if c.Theta != wrapTheta(16-int(z.Theta)) {
		t.Fatalf("Conj theta wrong: got %d", c.Theta)
	}
	_ = gotPhase
	_ = wantPhase
}
