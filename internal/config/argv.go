package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if strings.HasPrefix(input, "#") {
		return nil, nil
	}

	argv, err := shellwords.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", input, err)
	}
	if len(argv) == 0 {
		return nil, nil
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
