package hll

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddReportsChange(t *testing.T) {
	r := New()
	assert.True(t, IsEmpty(r))

	changed := Add(r, []byte("alice"))
	assert.True(t, changed)
	assert.False(t, IsEmpty(r))

	changed = Add(r, []byte("alice"))
	assert.False(t, changed, "re-adding the same element must not report a change once its register is already at its max observed rank")
}

func TestCountApproximatesCardinality(t *testing.T) {
	r := New()
	const n = 10000
	for i := 0; i < n; i++ {
		Add(r, []byte(fmt.Sprintf("element-%d", i)))
	}
	count := Count(r)

	// HyperLogLog's standard error is ~0.8%; allow a generous 5% band so the
	// test isn't flaky while still catching a badly broken estimator.
	lo := uint64(n * 0.95)
	hi := uint64(n * 1.05)
	assert.GreaterOrEqual(t, count, lo)
	assert.LessOrEqual(t, count, hi)
}

func TestCountEmptyIsZero(t *testing.T) {
	r := New()
	assert.Equal(t, uint64(0), Count(r))
}

func TestMergeTakesMaxPerRegister(t *testing.T) {
	a := New()
	b := New()
	for i := 0; i < 500; i++ {
		Add(a, []byte(fmt.Sprintf("a-%d", i)))
	}
	for i := 0; i < 500; i++ {
		Add(b, []byte(fmt.Sprintf("b-%d", i)))
	}

	merged := make([]byte, Registers)
	copy(merged, a)
	changed := Merge(merged, b)
	assert.True(t, changed)

	for i := range merged {
		want := a[i]
		if b[i] > want {
			want = b[i]
		}
		assert.Equal(t, want, merged[i])
	}

	// merging an already-merged sketch into itself changes nothing further.
	assert.False(t, Merge(merged, a))
	assert.False(t, Merge(merged, b))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(New()))
	assert.False(t, Valid(make([]byte, Registers-1)))

	bad := New()
	bad[0] = RegisterMax + 1
	assert.False(t, Valid(bad))
}
