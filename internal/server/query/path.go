// Package query parses the resource paths and the restricted OData query
// options ($select, $filter, $orderby) accepted by the data API.
package query

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/common"
)

// Resource is a parsed data path such as
//
//	attachments
//	attachments(8d1f...)
//	attachments(8d1f...)/file
//	EntityDefinitions(LogicalName='project')
type Resource struct {
	// Set is the entity set name; empty for metadata paths.
	Set       string
	Key       string
	Attribute string
	// Definition is the logical name requested from EntityDefinitions.
	Definition string
}

const definitionsSet = "EntityDefinitions"

func (r Resource) IsDefinition() bool { return r.Definition != "" }

// ParsePath parses p (relative to /api/data/).
func ParsePath(p string) (Resource, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return Resource{}, fmt.Errorf("%w: empty path", common.ErrInvalidQuery)
	}

	segs := strings.Split(p, "/")
	if len(segs) > 2 {
		return Resource{}, fmt.Errorf("%w: too many path segments", common.ErrInvalidQuery)
	}

	set, key, err := splitKey(segs[0])
	if err != nil {
		return Resource{}, err
	}

	if set == definitionsSet {
		name, ok := strings.CutPrefix(key, "LogicalName=")
		if !ok || len(segs) != 1 {
			return Resource{}, fmt.Errorf("%w: expected EntityDefinitions(LogicalName='name')", common.ErrInvalidQuery)
		}
		name = strings.Trim(name, "'")
		if name == "" {
			return Resource{}, fmt.Errorf("%w: empty logical name", common.ErrInvalidQuery)
		}
		return Resource{Definition: strings.ToLower(name)}, nil
	}

	r := Resource{Set: set, Key: key}
	if len(segs) == 2 {
		if key == "" {
			return Resource{}, fmt.Errorf("%w: attribute path needs a key", common.ErrInvalidQuery)
		}
		if segs[1] == "" {
			return Resource{}, fmt.Errorf("%w: empty attribute", common.ErrInvalidQuery)
		}
		r.Attribute = segs[1]
	}
	return r, nil
}

// splitKey splits "set(key)" into its parts. A bare "set" has no key.
func splitKey(seg string) (string, string, error) {
	open := strings.IndexByte(seg, '(')
	if open < 0 {
		if seg == "" || strings.ContainsAny(seg, ")'") {
			return "", "", fmt.Errorf("%w: bad segment %q", common.ErrInvalidQuery, seg)
		}
		return seg, "", nil
	}
	if !strings.HasSuffix(seg, ")") || open == 0 {
		return "", "", fmt.Errorf("%w: bad segment %q", common.ErrInvalidQuery, seg)
	}
	key := seg[open+1 : len(seg)-1]
	if key == "" {
		return "", "", fmt.Errorf("%w: empty key in %q", common.ErrInvalidQuery, seg)
	}
	return seg[:open], key, nil
}

// ParseBindTarget parses a bind value such as "/projects(8d1f...)".
func ParseBindTarget(v string) (set string, key string, err error) {
	set, key, err = splitKey(strings.TrimPrefix(v, "/"))
	if err != nil {
		return "", "", err
	}
	if key == "" {
		return "", "", fmt.Errorf("%w: bind target %q has no key", common.ErrInvalidQuery, v)
	}
	return set, key, nil
}
