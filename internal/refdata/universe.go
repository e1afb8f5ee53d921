package refdata

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadUniverse reads the watchlist file: one symbol per line, blank
// lines and #-comments ignored. An empty watchlist is an error; the
// engine has nothing to scan.
func LoadUniverse(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer f.Close()

	var symbols []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		symbols = append(symbols, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe %s is empty", path)
	}
	return symbols, nil
}
