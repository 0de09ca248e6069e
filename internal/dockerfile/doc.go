// Package dockerfile finds the build-context files a Dockerfile depends on.
//
// It understands just enough of the Dockerfile syntax to do that:
//   - Physical lines are trimmed, "#" comment lines are dropped and lines
//     ending in "\" are joined into one logical line (see Coalesce).
//   - COPY and ADD (matched case-sensitively) are tokenized on whitespace.
//     The last argument is the destination, the others are glob patterns
//     resolved against the build context.
//   - Leading flags such as --chown=1000:1000 are dropped. A --from flag
//     marks a stage copy, which contributes no paths.
//
// Every other instruction is ignored here. Callers hash the raw Dockerfile
// bytes separately, so those lines still affect the checksum.
//
// Unsupported:
//   - The JSON form COPY ["src1", "src2", "dst"]. It is reported as an
//     UnsupportedError instead of being misread as glob patterns.
//   - Variable expansion in source paths.
//   - Heredocs (COPY <<EOF /path).
//
// Example usage:
//
//	x := dockerfile.NewExtractor("/abs/context", slog.Default())
//	deps, err := x.Dependencies(content)
//	if err != nil {
//	    return err
//	}
//	for _, dep := range deps {
//	    fmt.Println(dep.Path)
//	}
package dockerfile
