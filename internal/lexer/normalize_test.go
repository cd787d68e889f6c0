package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("module M")...)
	assert.Equal(t, []byte("module M"), Normalize(src))
}

func TestNormalizeAppliesNFC(t *testing.T) {
	// "é" as NFD (e + combining acute) normalizes to the single rune.
	nfd := []byte("e\u0301")
	nfc := []byte("\u00e9")
	assert.Equal(t, nfc, Normalize(nfd))
}

func TestNormalizeLeavesAsciiAlone(t *testing.T) {
	src := []byte("f x = x + 1")
	assert.Equal(t, src, Normalize(src))
}
