package perm

import "fmt"

// Level is a permission level in the fixed hierarchy. Lower values are more
// privileged; authority granted at a level is inherited by every level
// below it.
type Level int

const (
	LevelOwner Level = iota
	LevelHICOM
	LevelOfficer
	LevelNCO
)

// levelOrder is the hierarchy from most to least privileged.
var levelOrder = [...]Level{LevelOwner, LevelHICOM, LevelOfficer, LevelNCO}

var levelNames = map[Level]string{
	LevelOwner:   "Owner",
	LevelHICOM:   "HICOM",
	LevelOfficer: "Officer",
	LevelNCO:     "NCO",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel maps a level name to its Level.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("perm: unknown permission level %q", s)
}

// AtLeast reports whether l is at or above the required level.
func (l Level) AtLeast(required Level) bool {
	return l <= required
}
