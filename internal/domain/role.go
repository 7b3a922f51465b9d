// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

type Role int

const (
	RolePresenter Role = iota
	RoleViewer
)

func (r Role) String() string {
	switch r {
	case RolePresenter:
		return "presenter"
	case RoleViewer:
		return "viewer"
	default:
		return "unknown"
	}
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "presenter", "publisher":
		return RolePresenter, nil
	case "viewer", "subscriber":
		return RoleViewer, nil
	}
	return 0, ErrUnknownRole
}

// MediaKind mirrors the two track kinds a call deals with.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)
