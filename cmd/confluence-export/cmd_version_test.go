package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildVersion_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "devel", buildVersion{Version: "(devel)"}.String())
	assert.Equal(t, "v1.2.0", buildVersion{Version: "v1.2.0"}.String())
	assert.Equal(t, "rev-abc123-dirty", buildVersion{Version: "unknown", Revision: "abc123", Dirty: true}.String())
	assert.Equal(t, "v1.2.0-rev-abc123", buildVersion{Version: "v1.2.0", Revision: "abc123"}.String())
}
