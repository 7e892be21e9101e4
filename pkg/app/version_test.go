package app

import (
	"testing"

	"github.com/kart-io/version"
	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	assert.Equal(t, version.Get().GitVersion, GetVersion())
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, version.Get(), info)
}
