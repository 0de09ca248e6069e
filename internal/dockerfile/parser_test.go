package dockerfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lineTexts(lines []Line) []string {
	var out []string
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestCoalesceContinuation(t *testing.T) {
	lines, err := Coalesce([]byte("COPY a \\\nb dst"))
	if err != nil {
		t.Fatalf("Coalesce failed: %v", err)
	}
	if diff := cmp.Diff([]string{"COPY a b dst"}, lineTexts(lines)); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
	if lines[0].Number != 1 {
		t.Errorf("expected line 1, got %d", lines[0].Number)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "blank lines only",
			input: "\n   \n\t\n",
			want:  nil,
		},
		{
			name:  "comments dropped",
			input: "# syntax=docker/dockerfile:1\nFROM alpine\n  # indented comment\nRUN true\n",
			want:  []string{"FROM alpine", "RUN true"},
		},
		{
			name:  "whitespace trimmed",
			input: "   FROM alpine   \n\tCOPY a b\t\n",
			want:  []string{"FROM alpine", "COPY a b"},
		},
		{
			name:  "no separator added at backslash",
			input: "RUN echo a\\\nb\n",
			want:  []string{"RUN echo ab"},
		},
		{
			name:  "comment inside continuation",
			input: "RUN apk add \\\n# curl is needed\n    curl\n",
			want:  []string{"RUN apk add curl"},
		},
		{
			name:  "blank line ends continuation",
			input: "RUN echo \\\n\nRUN true\n",
			want:  []string{"RUN echo", "RUN true"},
		},
		{
			name:  "multiple continuations",
			input: "COPY a \\\n  b \\\n  c \\\n  /dst/\n",
			want:  []string{"COPY a b c /dst/"},
		},
		{
			name:  "crlf line endings",
			input: "FROM alpine\r\nCOPY x \\\r\n /y\r\n",
			want:  []string{"FROM alpine", "COPY x /y"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines, err := Coalesce([]byte(tc.input))
			if err != nil {
				t.Fatalf("Coalesce failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, lineTexts(lines)); diff != "" {
				t.Errorf("unexpected lines (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoalesceLineNumbers(t *testing.T) {
	input := "FROM alpine\n\n# comment\nCOPY a \\\n  b \\\n  /dst\nRUN true\n"
	lines, err := Coalesce([]byte(input))
	if err != nil {
		t.Fatalf("Coalesce failed: %v", err)
	}

	want := []Line{
		{Number: 1, Text: "FROM alpine"},
		{Number: 4, Text: "COPY a b /dst"},
		{Number: 7, Text: "RUN true"},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestCoalesceTrailingContinuation(t *testing.T) {
	for _, input := range []string{"foo \\", "FROM alpine\nRUN foo \\\n", "RUN a \\\n# comment\n"} {
		_, err := Coalesce([]byte(input))
		if err == nil {
			t.Errorf("Coalesce(%q): expected error", input)
			continue
		}
		if !errors.Is(err, ErrTrailingContinuation) {
			t.Errorf("Coalesce(%q): expected ErrTrailingContinuation, got %v", input, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Coalesce(%q): expected *ParseError, got %T", input, err)
		}
	}
}

func TestCoalesceLargeInput(t *testing.T) {
	long := "RUN echo " + strings.Repeat("a", 3<<20)
	var b strings.Builder
	for i := 0; i < 50000; i++ {
		b.WriteString("RUN true\n")
	}
	b.WriteString(long + "\n")
	b.WriteString("COPY app.py /app/\n")

	lines, err := Coalesce([]byte(b.String()))
	if err != nil {
		t.Fatalf("Coalesce failed: %v", err)
	}
	if len(lines) != 50002 {
		t.Fatalf("expected 50002 lines, got %d", len(lines))
	}
	if lines[50000].Text != long {
		t.Error("long line was not preserved")
	}
	if last := lines[50001]; last.Text != "COPY app.py /app/" || last.Number != 50002 {
		t.Errorf("unexpected last line %+v", last)
	}
}

func TestParseInstructionCopy(t *testing.T) {
	instr, err := ParseInstruction(Line{Number: 3, Text: "COPY a.txt b/ /dst/"})
	if err != nil {
		t.Fatalf("ParseInstruction failed: %v", err)
	}
	if instr.Kind != InstructionCopy {
		t.Errorf("expected COPY, got %s", instr.Kind)
	}
	if instr.Line != 3 {
		t.Errorf("expected line 3, got %d", instr.Line)
	}
	if diff := cmp.Diff([]string{"a.txt", "b/"}, instr.Sources); diff != "" {
		t.Errorf("unexpected sources (-want +got):\n%s", diff)
	}
}

func TestParseInstructionFlags(t *testing.T) {
	tests := []struct {
		text      string
		sources   []string
		stageCopy bool
	}{
		{"COPY --chown=1000:1000 a.txt /dst", []string{"a.txt"}, false},
		{"COPY --from=builder /x /y", nil, true},
		{"COPY --chown=1000 --from=builder /x /y", nil, true},
		{"ADD --chmod=644 --chown=app a b /dst/", []string{"a", "b"}, false},
		{"COPY --chown=app /dst", []string{}, false},
		{"COPY a --from=builder /dst", []string{"a", "--from=builder"}, false},
		{"COPY --from=builder [\"/a\", \"/b\"]", nil, true},
		// Every leading flag is consumed, not only --chown, and --from is
		// honoured in any leading position.
		{"COPY --chmod=644 --from=b /x /y", nil, true},
		{"COPY --link a.txt /d", []string{"a.txt"}, false},
		{"ADD --checksum=sha256:abc --keep-git-dir a.tar /d", []string{"a.tar"}, false},
		{"COPY --link --chown=app --parents a b /d", []string{"a", "b"}, false},
	}

	for _, tc := range tests {
		instr, err := ParseInstruction(Line{Number: 1, Text: tc.text})
		if err != nil {
			t.Errorf("ParseInstruction(%q) failed: %v", tc.text, err)
			continue
		}
		if instr.IsStageCopy() != tc.stageCopy {
			t.Errorf("ParseInstruction(%q): stage copy = %v, want %v", tc.text, instr.IsStageCopy(), tc.stageCopy)
		}
		if diff := cmp.Diff(tc.sources, instr.Sources); diff != "" {
			t.Errorf("ParseInstruction(%q): unexpected sources (-want +got):\n%s", tc.text, diff)
		}
	}
}

func TestParseInstructionIgnoresOtherKeywords(t *testing.T) {
	for _, text := range []string{"FROM alpine", "RUN cp a b", "copy a b", "Add x y", "WORKDIR /app"} {
		instr, err := ParseInstruction(Line{Number: 1, Text: text})
		if err != nil {
			t.Errorf("ParseInstruction(%q) failed: %v", text, err)
			continue
		}
		if instr.Kind != InstructionOther {
			t.Errorf("ParseInstruction(%q): expected OTHER, got %s", text, instr.Kind)
		}
		if len(instr.Sources) != 0 {
			t.Errorf("ParseInstruction(%q): unexpected sources %v", text, instr.Sources)
		}
	}
}

func TestParseInstructionMissingArguments(t *testing.T) {
	for _, text := range []string{"COPY", "ADD"} {
		_, err := ParseInstruction(Line{Number: 5, Text: text})
		if !errors.Is(err, ErrMissingArguments) {
			t.Errorf("ParseInstruction(%q): expected ErrMissingArguments, got %v", text, err)
		}
		if err != nil && !strings.Contains(err.Error(), "line 5") {
			t.Errorf("ParseInstruction(%q): error should mention line: %v", text, err)
		}
	}
}

func TestParseInstructionExecForm(t *testing.T) {
	_, err := ParseInstruction(Line{Number: 2, Text: `COPY ["src1", "src2", "/dst/"]`})
	if !errors.Is(err, ErrUnsupportedInstruction) {
		t.Fatalf("expected ErrUnsupportedInstruction, got %v", err)
	}

	// A character class is a glob, not a JSON array.
	instr, err := ParseInstruction(Line{Number: 2, Text: "COPY [abc].txt /dst/"})
	if err != nil {
		t.Fatalf("ParseInstruction failed: %v", err)
	}
	if diff := cmp.Diff([]string{"[abc].txt"}, instr.Sources); diff != "" {
		t.Errorf("unexpected sources (-want +got):\n%s", diff)
	}
}
