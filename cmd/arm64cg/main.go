// Command arm64cg reads a small fixture describing a single function and
// runs it through the AArch64 code generator, writing assembly (or, with
// -stream, a hex dump of the structured instruction stream) to stdout or
// the path given by -o. This is demo/test tooling only — spec.md §1 places
// the real IR producer upstream of this package.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/albanread/fasterbasic-arm64cg/internal/arm64"
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain is separated from main for unit testing, following the teacher's
// cmd/wazero convention.
func doMain(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("arm64cg", flag.ContinueOnError)
	flags.SetOutput(stderr)

	target := flags.String("target", "darwin", "target platform: darwin or linux")
	stream := flags.Bool("stream", false, "emit the structured record stream (hex dump) instead of text")
	out := flags.String("o", "", "output path (default: stdout)")

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: arm64cg [-target darwin|linux] [-stream] [-o path] <fixture-file>")
		return 2
	}

	src, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fn, err := parseFixture(string(src))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var t arm64.Target
	switch *target {
	case "darwin":
		t = arm64.DarwinTarget()
	case "linux":
		t = arm64.ELFTarget()
	default:
		fmt.Fprintf(stderr, "unknown target %q\n", *target)
		return 2
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		w = f
	}

	ec := arm64.NewEmissionContext(t, arm64.DefaultConfig())

	if *stream {
		rs, err := ec.EmitStream(fn)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(w, hex.EncodeToString(recordsToBytes(rs)))
		return 0
	}

	if err := ec.Emit(fn, w); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
