package model

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixMessage     = "m"
	PrefixAppointment = "appt"
	PrefixTodo        = "todo"
	PrefixComposed    = "msg"
)

// NewID returns a prefixed, lexically sortable identifier such as "appt_01j...".
func NewID(prefix string) string {
	id := strings.ToLower(ulid.Make().String())
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
