package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrFeatureDisabled means the configuration switched the feature off.
	ErrFeatureDisabled = errors.New("feature disabled")
	// ErrKnockTimeout means a knock was sent too recently.
	ErrKnockTimeout = errors.New("knock timeout in effect")
	// ErrCannotInteract means the provider rules forbid the interaction.
	ErrCannotInteract = errors.New("providers cannot interact")
	// ErrLastAdmin blocks the only admin of a group from leaving or being
	// demoted.
	ErrLastAdmin = errors.New("thread needs at least one admin")
)

// ValidationErrors maps a field path such as "providers.2.alias" to a
// message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func invalid(field, message string) ValidationErrors {
	return ValidationErrors{field: message}
}
