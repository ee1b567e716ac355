// Package workitems loads the ordered list of identifiers a run processes.
package workitems

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Read returns one identifier per non-blank line of r, trimmed, in order.
// Lines starting with '#' are comments.
func Read(r io.Reader) ([]string, error) {
	var items []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		items = append(items, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read work items (line %d): %w", line+1, err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// ReadFile reads work items from path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open work items: %w", err)
	}
	defer f.Close()

	items, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}
