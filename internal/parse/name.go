package parse

import (
	"strconv"
	"strings"
)

// DisplayName derives the label shown for a machine code. Codes shaped like
// "LINE-12" become "#12"; anything else is returned unchanged.
func DisplayName(code string) string {
	if !strings.Contains(code, "-") {
		return code
	}
	parts := strings.Split(code, "-")
	if len(parts) < 2 {
		return code
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return code
	}
	return "#" + strconv.Itoa(n)
}
