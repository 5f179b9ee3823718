// Package gcode parses the G-code lines the screens inject into the printer.
package gcode

import (
	"sort"
	"strconv"
	"strings"
)

// Command is a parsed G-code line
type Command struct {
	Type       byte             // 'G', 'M', 'T'
	Number     int              // Command number (e.g., 0 for G0, 28 for G28)
	Parameters map[byte]float64 // Parameters (X, Y, Z, E, F, S, etc.)
	Comment    string           // Comment text
}

// Is reports whether the command is typ followed by number, e.g. Is('G', 28)
func (cmd *Command) Is(typ byte, number int) bool {
	return cmd.Type == typ && cmd.Number == number
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}

// String formats the command back to G-code, parameters in alphabetical order
func (cmd *Command) String() string {
	if cmd.Type == 0 {
		return cmd.Comment
	}

	var sb strings.Builder
	sb.WriteByte(cmd.Type)
	sb.WriteString(strconv.Itoa(cmd.Number))

	letters := make([]byte, 0, len(cmd.Parameters))
	for letter := range cmd.Parameters {
		letters = append(letters, letter)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })

	for _, letter := range letters {
		sb.WriteByte(' ')
		sb.WriteByte(letter)
		sb.WriteString(strconv.FormatFloat(cmd.Parameters[letter], 'f', -1, 64))
	}
	return sb.String()
}
