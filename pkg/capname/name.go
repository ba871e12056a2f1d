package capname

import "strings"

// MaxNameLen is the maximum length of a candidate name, excluding the extension.
var MaxNameLen = 50

// CandidateName derives a filename from a caption: spaces become underscores, the result is
// cut to MaxNameLen characters, and ext is appended.
//
// Characters that are illegal in filenames are not replaced.
func CandidateName(caption string, ext string) string {
	base := []rune(strings.ReplaceAll(caption, " ", "_"))
	if len(base) > MaxNameLen {
		base = base[:MaxNameLen]
	}
	return string(base) + ext
}
