// Command awps inspects and edits .awps spawner files without opening the editor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gekko3d/awparticles"
)

var errUsage = errors.New("usage")

const usage = `usage: awps [-debug] <command> [arguments]

commands:
  new [-force] <file>                 write the default spawner
  show <file>                         print every field
  validate <file>...                  parse files, exit 1 if any fails
  set [-deg] <file> <key=value>...    change fields and save
  gradient [-width n] [-height n] [-o out.png] <file>
                                      render the color gradient to a PNG

set keys: a field name (position.x, velocity.y, size, rotation, ...) with
clamped:min,max or normal:mean,stddev, fade_in=<0..0.5>, begin=#rrggbbaa,
end=#rrggbbaa.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("awps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	debug := fs.Bool("debug", false, "log debug output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	log := awparticles.NewWriterLogger("awps", *debug, stderr, stderr)
	cmd := &cli{out: stdout, errOut: stderr, log: log}

	var err error
	name, rest := fs.Arg(0), fs.Args()[1:]
	switch name {
	case "new":
		err = cmd.newFile(rest)
	case "show":
		err = cmd.show(rest)
	case "validate":
		err = cmd.validate(rest)
	case "set":
		err = cmd.set(rest)
	case "gradient":
		err = cmd.gradient(rest)
	case "help", "-h", "--help":
		fs.Usage()
		return 0
	default:
		fmt.Fprintf(stderr, "awps: unknown command %q\n", name)
		fs.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fs.Usage()
		return 2
	default:
		log.Errorf("%s: %v", name, err)
		return 1
	}
}
