package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatibleSameMinor(t *testing.T) {
	assert.True(t, Compatible(Current.String()), "a build must be compatible with its own version string")
}

func TestCompatibleRejectsGarbage(t *testing.T) {
	assert.False(t, Compatible("not-a-version"), "an unparseable version string must never be compatible")
}

func TestCompatibleRejectsDifferentMinor(t *testing.T) {
	assert.False(t, Compatible("0.9.0"), "a different minor version must not be reported compatible")
}
