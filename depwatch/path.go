package depwatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var bailRE = regexp.MustCompile(`[^\p{L}\p{N}\x{00B7}_.$]`)

// Path is a compiled dot-delimited accessor such as "a.b.0.c".
type Path struct {
	raw      string
	segments []string
}

// ParsePath compiles path. Anything but letters, digits, '_', '$' and '.'
// is rejected.
func ParsePath(path string) (*Path, error) {
	if bailRE.MatchString(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return &Path{raw: path, segments: strings.Split(path, ".")}, nil
}

func (p *Path) String() string {
	return p.raw
}

// Resolve walks the path from root through Objects and Arrays. Reads of
// reactive properties along the way are tracked. A missing step yields nil.
func (p *Path) Resolve(root any) any {
	cur := root
	for _, seg := range p.segments {
		switch x := cur.(type) {
		case *Object:
			if x == nil {
				return nil
			}
			cur = x.Get(seg)
		case *Array:
			i, err := strconv.Atoi(seg)
			if x == nil || err != nil {
				return nil
			}
			cur = x.At(i)
		default:
			return nil
		}
	}
	return cur
}

// parsePath is ParsePath with a per-system cache.
func (rs *ReactiveSystem) parsePath(path string) (*Path, error) {
	key := xxhash.Sum64String(path)
	if p, ok := rs.paths[key]; ok && p.raw == path {
		return p, nil
	}
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	rs.paths[key] = p
	return p, nil
}
