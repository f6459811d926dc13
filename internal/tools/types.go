// Package tools defines the capability contract the agent can invoke and
// the concrete tools shipped with the gateway.
package tools

import (
	"context"
	"errors"
	"fmt"
)

// Tool is an external capability identified by a unique name. Description
// is shown verbatim to the model when it decides which tools to call.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (any, error)
}

var ErrMissingArgument = errors.New("missing required argument")

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return s, nil
}

// intArg reads an optional integer argument. Decoded JSON numbers arrive
// as float64.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
