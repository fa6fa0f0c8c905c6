package archive

import (
	"strings"
	"time"
)

// ArtifactName builds the output filename for a backup artifact:
// <base>_<timestamp>.<ext>, where the timestamp is RFC 3339 with ':' and '.'
// replaced by '-' so the name stays valid on every filesystem. ext must
// include its leading dot ("" is allowed for extensionless artifacts).
func ArtifactName(base, ext string, t time.Time) string {
	return base + "_" + TimestampToken(t) + ext
}

// TimestampToken formats t for use inside artifact filenames.
func TimestampToken(t time.Time) string {
	token := t.Format(time.RFC3339)
	token = strings.ReplaceAll(token, ":", "-")
	token = strings.ReplaceAll(token, ".", "-")
	return token
}
