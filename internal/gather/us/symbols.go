package us

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadSymbolsCSV reads one symbol per line from path (comma-separated
// lines are flattened), uppercases, dedupes, and sorts them. Blank lines
// and lines starting with '#' are skipped.
func ReadSymbolsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symbols file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Split(line, ",") {
			sym := strings.ToUpper(strings.TrimSpace(field))
			if sym != "" {
				seen[sym] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading symbols file: %w", err)
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
