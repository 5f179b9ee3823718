package gcode

import (
	"fmt"
	"strings"
)

// Parser handles G-code parsing
type Parser struct{}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses a single line of G-code. Blank lines return nil.
func (p *Parser) ParseLine(line string) (*Command, error) {
	i := skipSpaces(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	// Comment only
	if line[i] == ';' || line[i] == '(' {
		cmd.Comment = line[i:]
		return cmd, nil
	}

	c := toUpper(line[i])
	if c != 'G' && c != 'M' && c != 'T' {
		return nil, fmt.Errorf("invalid command %q", line)
	}
	cmd.Type = c
	i++

	num, newPos := parseInt(line, i)
	if newPos <= i {
		return nil, fmt.Errorf("missing command number in %q", line)
	}
	cmd.Number = num
	i = newPos

	for {
		i = skipSpaces(line, i)
		if i >= len(line) {
			break
		}

		if line[i] == ';' || line[i] == '(' {
			cmd.Comment = line[i:]
			break
		}

		if !isLetter(line[i]) {
			return nil, fmt.Errorf("unexpected %q at column %d in %q", line[i], i+1, line)
		}
		letter := toUpper(line[i])
		i++

		value, newPos := parseFloat(line, i)
		if newPos > i {
			i = newPos
		}
		// A bare letter is a flag (G28 X)
		cmd.Parameters[letter] = value
	}

	return cmd, nil
}

// ParseLines parses a block of newline separated G-code, skipping blank lines
func (p *Parser) ParseLines(text string) ([]*Command, error) {
	var cmds []*Command
	for n, line := range strings.Split(text, "\n") {
		cmd, err := p.ParseLine(strings.TrimRight(line, "\r"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		if cmd != nil && cmd.Type != 0 {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

// parseInt parses an integer from the string starting at pos
func parseInt(s string, pos int) (int, int) {
	start := pos
	value := 0

	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		value = value*10 + int(s[pos]-'0')
		pos++
	}

	if pos == start {
		return 0, start // No digits found
	}
	return value, pos
}

// parseFloat parses a floating-point number from the string starting at pos
func parseFloat(s string, pos int) (float64, int) {
	start := pos
	if pos >= len(s) {
		return 0, start
	}

	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	digits := 0
	intPart := 0
	fracPart := 0.0
	fracDigits := 0

	// Parse integer part
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		intPart = intPart*10 + int(s[pos]-'0')
		pos++
		digits++
	}

	// Parse fractional part
	if pos < len(s) && s[pos] == '.' {
		pos++
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			fracPart = fracPart*10.0 + float64(s[pos]-'0')
			pos++
			fracDigits++
		}
	}

	if digits+fracDigits == 0 {
		return 0, start // No valid number found
	}

	value := float64(intPart)
	if fracDigits > 0 {
		divisor := 1.0
		for i := 0; i < fracDigits; i++ {
			divisor *= 10.0
		}
		value += fracPart / divisor
	}

	if negative {
		value = -value
	}

	return value, pos
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
