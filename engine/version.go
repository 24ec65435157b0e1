package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed engine version number.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Minimum engine versions for each capability. Formatting and JSON output
// were added to the engine later than linting.
var (
	MinLinterVersion       = Version{0, 0, 189}
	MinFormatterVersion    = Version{0, 0, 291}
	MinOutputFormatVersion = Version{0, 0, 291}
)

// ParseVersion parses "MAJOR.MINOR.PATCH" with an optional pre-release or
// build suffix after the patch number.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(parts[0]); err != nil {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	if v.Minor, err = strconv.Atoi(parts[1]); err != nil {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	patch := parts[2]
	for i := 0; i < len(patch); i++ {
		if patch[i] < '0' || patch[i] > '9' {
			patch = patch[:i]
			break
		}
	}
	if v.Patch, err = strconv.Atoi(patch); err != nil {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	return v, nil
}

// AtLeast reports whether v >= min.
func (v Version) AtLeast(min Version) bool {
	if v.Major != min.Major {
		return v.Major > min.Major
	}
	if v.Minor != min.Minor {
		return v.Minor > min.Minor
	}
	return v.Patch >= min.Patch
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
