// Package output writes the final result set to disk: one subdomain per line,
// lexicographically sorted, with a placeholder line when nothing was found.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EmptyPlaceholder is written when a run discovers no subdomains, so the
// output file always exists and is never empty.
const EmptyPlaceholder = "# No subdomains found."

// WriteFile writes subdomains to path, creating parent directories as needed.
// The input is sorted and deduplicated before writing; blank entries are
// dropped. The file is written in one pass after discovery settles.
func WriteFile(path string, subdomains []string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("output path is required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := writeLines(writer, subdomains); err != nil {
		file.Close()
		return err
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flushing output file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}

func writeLines(writer *bufio.Writer, subdomains []string) error {
	lines := normalize(subdomains)
	if len(lines) == 0 {
		_, err := fmt.Fprintln(writer, EmptyPlaceholder)
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}
	return nil
}

func normalize(subdomains []string) []string {
	seen := make(map[string]struct{}, len(subdomains))
	lines := make([]string, 0, len(subdomains))
	for _, subdomain := range subdomains {
		subdomain = strings.TrimSpace(subdomain)
		if subdomain == "" {
			continue
		}
		if _, ok := seen[subdomain]; ok {
			continue
		}
		seen[subdomain] = struct{}{}
		lines = append(lines, subdomain)
	}
	sort.Strings(lines)
	return lines
}
