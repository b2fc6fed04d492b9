package wordlist

import (
	"fmt"
	"iter"
	"math"
	"os"
	"slices"
	"strings"
	"unicode/utf8"
)

// List is a de-duplicated wordlist. It can be iterated any number of times.
type List []string

// Words yields the entries in file order.
func (l List) Words() iter.Seq[string] { return slices.Values(l) }

// Count returns the number of entries.
func (l List) Count() uint64 { return uint64(len(l)) }

// Load returns the words to probe. If path is empty, the embedded default
// wordlist is used. %EXT% placeholders are kept; they are expanded per
// directory by the scanner.
func Load(path string) (List, error) {
	var raw string
	if path == "" {
		raw = embeddedWordlist
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading wordlist %s: %w", path, err)
		}
		raw = string(data)
	}
	return Parse(raw), nil
}

// Parse splits raw into entries, skipping blank lines and # comments and
// dropping duplicates.
func Parse(raw string) List {
	lines := strings.Split(raw, "\n")
	seen := make(map[string]struct{}, len(lines))
	var result List
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; !ok {
			seen[line] = struct{}{}
			result = append(result, line)
		}
	}
	return result
}

// Brute generates every string over a character set for each length in
// [Min, Max], shortest first. Nothing is held in memory beyond one word.
type Brute struct {
	charset []rune
	min     int
	max     int
}

// NewBrute validates the parameters and returns a brute-force word source.
func NewBrute(charset string, minLen, maxLen int) (*Brute, error) {
	if charset == "" {
		return nil, fmt.Errorf("brute force: empty charset")
	}
	if !utf8.ValidString(charset) {
		return nil, fmt.Errorf("brute force: charset is not valid UTF-8")
	}
	if minLen < 1 || maxLen < minLen {
		return nil, fmt.Errorf("brute force: invalid length range [%d, %d]", minLen, maxLen)
	}
	runes := []rune(charset)
	seen := make(map[rune]struct{}, len(runes))
	uniq := runes[:0]
	for _, r := range runes {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			uniq = append(uniq, r)
		}
	}
	return &Brute{charset: uniq, min: minLen, max: maxLen}, nil
}

// Words yields the generated strings. Each call starts from the beginning.
func (b *Brute) Words() iter.Seq[string] {
	return func(yield func(string) bool) {
		n := len(b.charset)
		for length := b.min; length <= b.max; length++ {
			idx := make([]int, length)
			buf := make([]rune, length)
			for {
				for i, j := range idx {
					buf[i] = b.charset[j]
				}
				if !yield(string(buf)) {
					return
				}
				// Odometer increment, rightmost position fastest.
				i := length - 1
				for ; i >= 0; i-- {
					idx[i]++
					if idx[i] < n {
						break
					}
					idx[i] = 0
				}
				if i < 0 {
					break
				}
			}
		}
	}
}

// Count returns the number of strings Words yields, saturating at
// math.MaxUint64.
func (b *Brute) Count() uint64 {
	n := uint64(len(b.charset))
	var total uint64
	for length := b.min; length <= b.max; length++ {
		c := uint64(1)
		for range length {
			if c > math.MaxUint64/n {
				return math.MaxUint64
			}
			c *= n
		}
		if total > math.MaxUint64-c {
			return math.MaxUint64
		}
		total += c
	}
	return total
}
