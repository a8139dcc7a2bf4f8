package main

import (
	"fmt"
	"sort"
	"strings"
)

// kvFlags collects repeated KEY=VALUE flags.
type kvFlags map[string]string

// String implements the pflag.Value interface.
func (i *kvFlags) String() string {
	s := []string{}
	for k, v := range *i {
		s = append(s, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(s)
	return strings.Join(s, ",")
}

// Set implements the pflag.Value interface.
func (i *kvFlags) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return fmt.Errorf("invalid format, expected KEY=VALUE")
	}
	if *i == nil {
		*i = make(kvFlags)
	}
	(*i)[parts[0]] = parts[1]
	return nil
}

// Type implements the pflag.Value interface.
func (i *kvFlags) Type() string { return "KEY=VALUE" }
