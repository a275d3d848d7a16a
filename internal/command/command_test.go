package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestParseUppercasesName(t *testing.T) {
	c, err := Parse(b("get", "foo"))
	require.NoError(t, err)
	assert.Equal(t, "GET", c.Name)
	assert.Equal(t, [][]byte{[]byte("foo")}, c.Args)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestValidateArity(t *testing.T) {
	c, _ := Parse(b("GET"))
	err := Validate(c)
	assert.EqualError(t, err, "ERR wrong number of arguments for 'get' command")
}

func TestValidateUnknown(t *testing.T) {
	c, _ := Parse(b("FROBNICATE", "x"))
	err := Validate(c)
	assert.EqualError(t, err, "ERR unknown command 'FROBNICATE x'")
}

func TestValidateSetOptions(t *testing.T) {
	ok, _ := Parse(b("SET", "k", "v", "EX", "10", "NX"))
	assert.NoError(t, Validate(ok))

	badInt, _ := Parse(b("SET", "k", "v", "EX", "abc"))
	assert.Equal(t, ErrNotInteger, Validate(badInt))

	badFlag, _ := Parse(b("SET", "k", "v", "BOGUS"))
	assert.Equal(t, ErrSyntax, Validate(badFlag))

	dangling, _ := Parse(b("SET", "k", "v", "EX"))
	assert.Equal(t, ErrSyntax, Validate(dangling))
}

func TestValidateMSetEvenPairs(t *testing.T) {
	odd, _ := Parse(b("MSET", "k1", "v1", "k2"))
	assert.Equal(t, ErrSyntax, Validate(odd))

	even, _ := Parse(b("MSET", "k1", "v1", "k2", "v2"))
	assert.NoError(t, Validate(even))
}

func TestValidateZAdd(t *testing.T) {
	ok, _ := Parse(b("ZADD", "k", "NX", "1", "a", "2", "b"))
	assert.NoError(t, Validate(ok))

	badScore, _ := Parse(b("ZADD", "k", "notafloat", "a"))
	assert.Equal(t, ErrNotInteger, Validate(badScore))

	incomplete, _ := Parse(b("ZADD", "k", "1", "a", "2"))
	assert.Equal(t, ErrSyntax, Validate(incomplete))
}

func TestValidateZRangeWithScores(t *testing.T) {
	ok, _ := Parse(b("ZRANGE", "k", "0", "-1", "WITHSCORES"))
	assert.NoError(t, Validate(ok))

	bad, _ := Parse(b("ZRANGE", "k", "0", "-1", "BOGUS"))
	assert.Equal(t, ErrSyntax, Validate(bad))
}

func TestValidateScanOptions(t *testing.T) {
	ok, _ := Parse(b("SCAN", "0", "MATCH", "k*", "COUNT", "10", "TYPE", "string"))
	assert.NoError(t, Validate(ok))

	badCount, _ := Parse(b("SCAN", "0", "COUNT", "nope"))
	assert.Equal(t, ErrNotInteger, Validate(badCount))

	noTypeOnHScan, _ := Parse(b("HSCAN", "k", "0", "TYPE", "string"))
	assert.Equal(t, ErrSyntax, Validate(noTypeOnHScan))
}

func TestValidateClientSubcommands(t *testing.T) {
	ok, _ := Parse(b("CLIENT", "PAUSE", "100"))
	assert.NoError(t, Validate(ok))

	badInt, _ := Parse(b("CLIENT", "PAUSE", "soon"))
	assert.Equal(t, ErrNotInteger, Validate(badInt))

	unknownSub, _ := Parse(b("CLIENT", "BOGUS"))
	assert.Equal(t, ErrSyntax, Validate(unknownSub))
}

func TestValidateConfigSubcommand(t *testing.T) {
	ok, _ := Parse(b("CONFIG", "GET", "maxmemory"))
	assert.NoError(t, Validate(ok))

	bad, _ := Parse(b("CONFIG", "RELOAD", "now"))
	assert.Equal(t, ErrSyntax, Validate(bad))
}
