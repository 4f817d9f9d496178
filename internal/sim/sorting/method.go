package sorting

import (
	"fmt"
	"strings"
)

type Method int

const (
	MethodDefault Method = iota
	MethodEvenStacks
	MethodInventory
	MethodHorizontal
	MethodVertical
)

func (m Method) String() string {
	switch m {
	case MethodDefault:
		return "default"
	case MethodEvenStacks:
		return "even_stacks"
	case MethodInventory:
		return "inventory"
	case MethodHorizontal:
		return "horizontal"
	case MethodVertical:
		return "vertical"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod accepts the names used by tuning.yaml and the CLI.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return MethodDefault, nil
	case "even_stacks", "even":
		return MethodEvenStacks, nil
	case "inventory":
		return MethodInventory, nil
	case "horizontal":
		return MethodHorizontal, nil
	case "vertical":
		return MethodVertical, nil
	}
	return MethodDefault, fmt.Errorf("unknown sorting method %q", s)
}
