package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseFingerprint() DeviceFingerprint {
	return DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
		ScreenResolution: "1920x1080",
		Timezone:         "Europe/Berlin",
		Locale:           "de-DE",
		CanvasSignature:  "c4f3a9",
	}
}

func TestDeviceFingerprint_HashStable(t *testing.T) {
	fp := baseFingerprint()

	assert.Equal(t, fp.Hash(), fp.Hash())
	assert.Len(t, fp.Hash(), 64)
}

func TestDeviceFingerprint_AnyComponentChangesHash(t *testing.T) {
	base := baseFingerprint().Hash()

	variants := []DeviceFingerprint{
		baseFingerprint(),
		baseFingerprint(),
		baseFingerprint(),
		baseFingerprint(),
		baseFingerprint(),
	}
	variants[0].UserAgent = "Mozilla/5.0 (Windows NT 10.0)"
	variants[1].ScreenResolution = "2560x1440"
	variants[2].Timezone = "America/New_York"
	variants[3].Locale = "en-US"
	variants[4].CanvasSignature = "different"

	for i, fp := range variants {
		assert.NotEqual(t, base, fp.Hash(), "variant %d should change the hash", i)
	}
}

func TestDeviceFingerprint_CanonicalizationOnlyWhitespaceAndCase(t *testing.T) {
	base := baseFingerprint()

	padded := base
	padded.UserAgent = "  " + base.UserAgent + " "
	padded.Timezone = " EUROPE/BERLIN "
	padded.Locale = "DE-de"
	assert.Equal(t, base.Hash(), padded.Hash())

	// The user agent itself is case-sensitive
	cased := base
	cased.UserAgent = "mozilla/5.0 (macintosh; intel mac os x 10_15_7)"
	assert.NotEqual(t, base.Hash(), cased.Hash())
}

func TestDeviceFingerprint_ComponentsDoNotCollide(t *testing.T) {
	// Shifting a boundary between adjacent components must not collapse
	a := DeviceFingerprint{UserAgent: "abc", ScreenResolution: "def"}
	b := DeviceFingerprint{UserAgent: "abcd", ScreenResolution: "ef"}

	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestDeviceFingerprint_IsZero(t *testing.T) {
	assert.True(t, DeviceFingerprint{}.IsZero())
	assert.False(t, DeviceFingerprint{UserAgent: "Mozilla/5.0"}.IsZero())
	assert.False(t, baseFingerprint().IsZero())
}
