package util

import "strings"

// SplitAtColon splits "a: b" into trimmed halves, or returns defaultValues
// when there is no colon.
func SplitAtColon(input string, defaultValues []string) []string {
	index := strings.IndexByte(input, ':')
	if index == -1 {
		return defaultValues
	}
	return []string{
		strings.TrimSpace(input[:index]),
		strings.TrimSpace(input[index+1:]),
	}
}
