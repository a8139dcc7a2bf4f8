package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventString(t *testing.T) {
	e := EventPackageWritten{Path: "out/demo_1.0-amd64.deb", Size: 1234}
	assert.JSONEq(t, `{"deb.EventPackageWritten":{"path":"out/demo_1.0-amd64.deb","size":1234}}`, e.String())

	b := EventBundleBuilt{Member: "data.tar.xz", Size: 7}
	assert.JSONEq(t, `{"deb.EventBundleBuilt":{"member":"data.tar.xz","size":7}}`, b.String())
}
