package password

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseDenyList reads one password per line. Blank lines and lines starting
// with '#' are skipped; surrounding whitespace is trimmed.
func ParseDenyList(r io.Reader) ([]string, error) {
	list := []string{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read deny list: %w", err)
	}

	return list, nil
}

// LoadDenyListFile parses the deny list stored at path.
func LoadDenyListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deny list: %w", err)
	}
	defer f.Close()

	return ParseDenyList(f)
}
