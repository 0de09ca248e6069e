package dockerfile

// InstructionKind identifies how an instruction is treated when collecting
// dependencies.
type InstructionKind int

const (
	// InstructionOther covers every keyword that does not reference the
	// build context. Such lines only reach the checksum through the raw
	// bytes of the whole file.
	InstructionOther InstructionKind = iota
	InstructionCopy
	InstructionAdd
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionCopy:
		return "COPY"
	case InstructionAdd:
		return "ADD"
	default:
		return "OTHER"
	}
}

// KindOf maps an instruction keyword to its kind. Keywords are matched
// case-sensitively.
func KindOf(keyword string) InstructionKind {
	switch keyword {
	case "COPY":
		return InstructionCopy
	case "ADD":
		return InstructionAdd
	default:
		return InstructionOther
	}
}

// Line is one logical instruction line after continuation joining.
type Line struct {
	Number int    // Physical line the instruction starts on (1-indexed)
	Text   string // Trimmed, comment-free instruction text
}

// Instruction is a tokenized logical line.
type Instruction struct {
	Kind    InstructionKind
	Keyword string
	Line    int
	Args    []string          // Arguments after the keyword, destination included
	Sources []string          // Source glob patterns (flags and destination removed)
	Flags   map[string]string // Leading --key=value flags of the source list
}

// Dependency is a concrete filesystem path referenced by an instruction.
type Dependency struct {
	Pattern string // Glob pattern that produced the match
	Path    string // Path as matched, relative to the context unless the pattern was absolute
	Abs     string // Absolute path on disk
	Line    int    // Line of the referencing instruction
}
