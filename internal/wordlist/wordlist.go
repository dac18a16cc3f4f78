// Package wordlist loads candidate passphrases for the dictionary attack.
package wordlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wpacrack/wpacrack/pkg/wpa"
)

// Load reads a wordlist file into memory: one UTF-8 candidate per line,
// trimmed. Lines outside the 8-63 byte WPA passphrase bounds are filtered out
// before the orchestrator ever sees them.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordlist: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read filters candidates from any line-oriented source.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer for long lines

	var words []string
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if len(word) < wpa.MinPassphraseLen || len(word) > wpa.MaxPassphraseLen {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}

	return words, nil
}
