package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/yaml.v2"

	"github.com/gpsl-lang/gpsl/pkg/gpsl"
)

const Version = "0.1.0"

const HelpMessage = `
GPSL is an embeddable, capability-gated scripting language.
	gpsl v%s

By default, gpsl interprets from stdin.
	gpsl < main.gpsl
Run GPSL programs from source files by passing them to the interpreter.
	gpsl main.gpsl other.gpsl
Start an interactive repl with -repl.
	gpsl -repl
	> ___
Run from the command line with -eval.
	gpsl -eval 'fn main() { println("hi"); }'

`

const historyFile = ".gpsl_history"

// Policy is the YAML shape of a -policy file: the root permission grant
// and an optional entry function name.
type Policy struct {
	Accept []string `yaml:"accept"`
	Reject []string `yaml:"reject"`
	Entry  string   `yaml:"entry"`
}

func main() {
	flag.Usage = func() {
		fmt.Printf(HelpMessage, Version)
		flag.PrintDefaults()
	}

	// permission flags
	noIO := flag.Bool("no-io", false, "Run without the StandardIO permission")
	noAdmin := flag.Bool("no-admin", false, "Run without the Administrator permission")
	isolate := flag.Bool("isolate", false, "Start from an empty root permission grant")
	grant := flag.String("grant", "", "Comma-separated permissions added to the root accept set")
	deny := flag.String("deny", "", "Comma-separated permissions added to the root reject set")
	policyPath := flag.String("policy", "", "YAML policy file with accept/reject lists and an entry name")

	// cli arguments
	verbose := flag.Bool("verbose", false, "Log all interpreter debug information")
	debugLexer := flag.Bool("debug-lex", false, "Log lexer output")
	debugParser := flag.Bool("debug-parse", false, "Log parser output")

	version := flag.Bool("version", false, "Print version string and exit")
	help := flag.Bool("help", false, "Print help message and exit")

	repl := flag.Bool("repl", false, "Run as an interactive repl")
	eval := flag.String("eval", "", "Evaluate argument as a GPSL program")
	entry := flag.String("entry", "main", "Function to run after loading a program")

	flag.Parse()

	// collect all other non-parsed arguments from the CLI as files to be run
	files := flag.Args()

	// if asked for version, disregard everything else
	if *version {
		fmt.Printf("gpsl v%s\n", Version)
		os.Exit(0)
	} else if *help {
		flag.Usage()
		os.Exit(0)
	}

	accept := make([]gpsl.Permission, 0)
	if !*isolate {
		if !*noAdmin {
			accept = append(accept, gpsl.Administrator)
		}
		if !*noIO {
			accept = append(accept, gpsl.StandardIO)
		}
	}
	accept = append(accept, parsePermissionFlag(*grant)...)
	reject := parsePermissionFlag(*deny)

	entryName := *entry
	if *policyPath != "" {
		policy := loadPolicy(*policyPath)
		accept = append(accept, parsePermissionNames(policy.Accept)...)
		reject = append(reject, parsePermissionNames(policy.Reject)...)
		if policy.Entry != "" {
			entryName = policy.Entry
		}
	}

	cfg := config{
		accept:     accept,
		reject:     reject,
		entry:      entryName,
		debugLexer: *debugLexer || *verbose,
		debugParse: *debugParser || *verbose,
	}

	if *repl {
		runRepl(cfg)
	} else if *eval != "" {
		runSource(cfg, strings.NewReader(*eval))
	} else if len(files) > 0 {
		for _, filePath := range files {
			// expand out ~ for $HOME, which is not done by shells
			if strings.HasPrefix(filePath, "~"+string(os.PathSeparator)) {
				filePath = os.Getenv("HOME") + string(os.PathSeparator) + filePath[2:]
			}

			file, err := os.Open(filePath)
			if err != nil {
				gpsl.LogErrf(
					gpsl.ErrSystem,
					"could not open %s for execution:\n\t-> %s", filePath, err,
				)
			}

			runSource(cfg, file)
			file.Close()
		}
	} else {
		runSource(cfg, os.Stdin)
	}
}

type config struct {
	accept     []gpsl.Permission
	reject     []gpsl.Permission
	entry      string
	debugLexer bool
	debugParse bool
}

func parsePermissionFlag(list string) []gpsl.Permission {
	if list == "" {
		return nil
	}
	return parsePermissionNames(strings.Split(list, ","))
}

func parsePermissionNames(names []string) []gpsl.Permission {
	perms := make([]gpsl.Permission, 0, len(names))
	for _, name := range names {
		perm, err := gpsl.ParsePermission(strings.TrimSpace(name))
		if err != nil {
			gpsl.LogError(err)
			os.Exit(1)
		}
		perms = append(perms, perm)
	}
	return perms
}

func loadPolicy(path string) Policy {
	buf, err := os.ReadFile(path)
	if err != nil {
		gpsl.LogErrf(
			gpsl.ErrSystem,
			"could not read policy file %s:\n\t-> %s", path, err,
		)
	}

	policy := Policy{}
	if err := yaml.Unmarshal(buf, &policy); err != nil {
		gpsl.LogErrf(
			gpsl.ErrSystem,
			"could not parse policy file %s:\n\t-> %s", path, err,
		)
	}
	return policy
}

func load(cfg config, input io.Reader) (*gpsl.Program, error) {
	tokens, err := gpsl.Tokenize(input)
	if err != nil {
		return nil, err
	}
	if cfg.debugLexer {
		for _, tok := range tokens {
			gpsl.LogDebug("lex ->", tok.String())
		}
	}

	prog, err := gpsl.Parse(tokens)
	if err != nil {
		return nil, err
	}
	if cfg.debugParse {
		for _, fn := range prog.Functions {
			gpsl.LogDebug("parse ->", fn.String())
		}
	}
	return prog, nil
}

func newRuntime(cfg config, prog *gpsl.Program) *gpsl.Runtime {
	rt := gpsl.NewRuntime(prog)
	rt.Accept = cfg.accept
	rt.Reject = cfg.reject
	rt.LoadExternal(gpsl.Stdlib())
	return rt
}

func runSource(cfg config, input io.Reader) {
	prog, err := load(cfg, input)
	if err != nil {
		gpsl.LogError(err)
		os.Exit(1)
	}

	if _, err := newRuntime(cfg, prog).Run(cfg.entry); err != nil {
		gpsl.LogError(err)
		os.Exit(1)
	}
}

// runRepl runs an interactive session. A line starting with fn is
// loaded as a whole program and its entry function run; any other line
// is wrapped in a synthetic function and executed on a fresh runtime —
// GPSL locals live only inside calls, so no state persists across lines.
func runRepl(cfg config) {
	session := liner.NewLiner()
	defer session.Close()
	session.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.Getenv("HOME"), historyFile)
	if f, err := os.Open(historyPath); err == nil {
		session.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			session.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := session.Prompt("> ")
		if err == liner.ErrPromptAborted {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			gpsl.LogErrf(
				gpsl.ErrSystem,
				"unexpected end of input:\n\t-> %s", err.Error(),
			)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":quit" {
			break
		}
		session.AppendHistory(input)

		entryName := cfg.entry
		source := input
		if !strings.HasPrefix(input, "fn") {
			entryName = "repl"
			if strings.HasSuffix(input, ";") || strings.HasSuffix(input, "}") {
				// statement line, run for effect
				source = fmt.Sprintf("fn repl() { %s }", input)
			} else {
				// expression line, run and echo the result
				source = fmt.Sprintf("fn repl() { return %s; }", input)
			}
		}

		prog, err := load(cfg, strings.NewReader(source))
		if err != nil {
			gpsl.LogError(err)
			continue
		}

		val, err := newRuntime(cfg, prog).Run(entryName)
		if err != nil {
			gpsl.LogError(err)
			continue
		}
		if val != nil {
			if _, isUnit := val.(gpsl.UnitValue); !isUnit {
				gpsl.LogInteractive(val.String())
			}
		}
	}
}
