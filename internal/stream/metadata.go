package stream

import "encoding/json"

// SupportedVersions is the set of metadata "version" strings this
// deserializer accepts (§6: "matched against a supported set"). v0.1 is the
// only version this repository's reference encoder ever emits.
var SupportedVersions = map[string]bool{
	"v0.1": true,
}

// Metadata is the decoded preamble metadata (§6).
type Metadata struct {
	Version        string
	UserDefined    map[string]any
	HasUserDefined bool
}

func decodeMetadata(raw []byte) (Metadata, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Metadata{}, newProtocolError("metadata is not valid JSON: %v", err)
	}

	versionAny, ok := obj["version"]
	if !ok {
		return Metadata{}, newProtocolError("metadata missing required key %q", "version")
	}
	version, ok := versionAny.(string)
	if !ok {
		return Metadata{}, newProtocolError("metadata key %q is not a string", "version")
	}
	if !SupportedVersions[version] {
		return Metadata{}, newNotSupportedError("unsupported metadata version %q", version)
	}

	md := Metadata{Version: version}
	if udAny, present := obj["user_defined_metadata"]; present {
		ud, ok := udAny.(map[string]any)
		if !ok {
			return Metadata{}, newNotSupportedError("user_defined_metadata is not an object")
		}
		md.UserDefined = ud
		md.HasUserDefined = true
	}
	return md, nil
}
