package deb

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events during the build.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventControlLoaded is emitted once the control file is parsed and valid.
type EventControlLoaded struct {
	Path         string `json:"path,omitempty"`
	Package      string `json:"package,omitempty"`
	Version      string `json:"version,omitempty"`
	Architecture string `json:"architecture,omitempty"`
	Fields       int    `json:"fields"`
}

func (e EventControlLoaded) String() string { return jsonString(e) }

// EventPayloadScanned is emitted after the payload checksums are computed.
type EventPayloadScanned struct {
	Path          string `json:"path,omitempty"`
	Files         int    `json:"files"`
	TotalSize     int64  `json:"total_size"`
	InstalledSize string `json:"installed_size,omitempty"`
}

func (e EventPayloadScanned) String() string { return jsonString(e) }

// EventBundleBuilt is emitted when the control or data archive is ready.
type EventBundleBuilt struct {
	Member string `json:"member,omitempty"`
	Size   int    `json:"size"`
}

func (e EventBundleBuilt) String() string { return jsonString(e) }

// EventPackageWritten is emitted when the package file is in place.
type EventPackageWritten struct {
	Path string `json:"path,omitempty"`
	Size int64  `json:"size"`
}

func (e EventPackageWritten) String() string { return jsonString(e) }
