package dockerfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// Coalesce splits Dockerfile content into logical lines. Comment lines are
// dropped, lines ending in a backslash are joined with the next line and
// blank results are removed.
//
// The backslash is removed without inserting a separator, so "a \" followed
// by "b" yields "a b" while "a\" followed by "b" yields "ab". A comment line
// inside a continuation is skipped without ending it. A blank line ends it.
func Coalesce(data []byte) ([]Line, error) {
	// No physical line is longer than the whole input.
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)

	var (
		result    []Line
		pending   strings.Builder
		lineNum   int
		startLine int
	)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}

		if pending.Len() == 0 {
			startLine = lineNum
		}

		if rest, ok := strings.CutSuffix(line, "\\"); ok {
			pending.WriteString(rest)
			continue
		}

		pending.WriteString(line)
		result = append(result, Line{Number: startLine, Text: pending.String()})
		pending.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Message: "read error: " + err.Error()}
	}

	if pending.Len() > 0 {
		return nil, &ParseError{
			Line:    startLine,
			Message: "unterminated line continuation",
			Hint:    "remove the trailing \\ from the last instruction",
			Err:     ErrTrailingContinuation,
		}
	}

	lines := result[:0]
	for _, l := range result {
		l.Text = strings.TrimSpace(l.Text)
		if l.Text == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// ParseInstruction tokenizes a logical line on ASCII whitespace. For COPY
// and ADD it also splits the arguments into flags, source patterns and the
// destination. Other keywords are returned with only Keyword, Kind, Line
// and Args set.
func ParseInstruction(line Line) (Instruction, error) {
	tokens := fields(line.Text)
	if len(tokens) == 0 {
		return Instruction{}, &ParseError{Line: line.Number, Message: "empty instruction"}
	}

	instr := Instruction{
		Keyword: tokens[0],
		Kind:    KindOf(tokens[0]),
		Line:    line.Number,
		Args:    tokens[1:],
	}
	if instr.Kind == InstructionOther {
		return instr, nil
	}

	if len(instr.Args) == 0 {
		return Instruction{}, &ParseError{
			Line:    line.Number,
			Message: "no arguments to " + instr.Keyword + " command",
			Hint:    instr.Keyword + " requires source and destination",
			Err:     ErrMissingArguments,
		}
	}

	sources := instr.Args[:len(instr.Args)-1]
	instr.Flags = make(map[string]string)
	sources = parseFlags(sources, instr.Flags)

	// A stage copy never touches the build context, so the remaining
	// arguments are not inspected at all.
	if _, ok := instr.Flags["from"]; ok {
		return instr, nil
	}

	if isExecForm(instr.Args[len(instr.Args)-len(sources)-1:]) {
		return Instruction{}, &UnsupportedError{
			Feature: instr.Keyword + ` ["src", ..., "dst"] form`,
			Line:    line.Number,
		}
	}

	instr.Sources = sources
	return instr, nil
}

// IsStageCopy reports whether the instruction copies from another build
// stage or image rather than from the build context.
func (i Instruction) IsStageCopy() bool {
	_, ok := i.Flags["from"]
	return ok
}

// parseFlags consumes leading --key[=value] tokens and returns the rest.
func parseFlags(tokens []string, flags map[string]string) []string {
	for len(tokens) > 0 && strings.HasPrefix(tokens[0], "--") {
		flag := strings.TrimPrefix(tokens[0], "--")
		if key, value, ok := strings.Cut(flag, "="); ok {
			flags[key] = value
		} else {
			flags[flag] = ""
		}
		tokens = tokens[1:]
	}
	return tokens
}

// isExecForm reports whether the arguments (destination included) form a
// JSON array such as ["a", "b", "/dst"].
func isExecForm(args []string) bool {
	if len(args) == 0 || !strings.HasPrefix(args[0], "[") {
		return false
	}
	var parsed []string
	return json.Unmarshal([]byte(strings.Join(args, " ")), &parsed) == nil
}

// fields splits s around runs of ASCII whitespace.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			return true
		}
		return false
	})
}
