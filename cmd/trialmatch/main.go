package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trialmatch/internal/adapter/llm"
	"trialmatch/internal/adapter/tool"
	"trialmatch/internal/catalog"
	"trialmatch/internal/infra/config"
	"trialmatch/internal/infra/logger"
	"trialmatch/internal/infra/tracer"
	"trialmatch/internal/match"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`trialmatch - clinical trial eligibility matcher

USAGE:
    trialmatch COMMAND [-config FILE] [ARGS]

COMMANDS:
    programs                      List all clinical programs
    candidates PROGRAM_ID         List candidates eligible for a program
    programs-for PERSON_ID        List programs a person is eligible for
    find-program QUERY            Resolve a program by (partial) name
    find-person QUERY             Resolve a person by name (typo-tolerant)
    tools                         Print the tool schemas exposed to LLMs
    providers                     List configured LLM providers

FLAGS:
    -config FILE                  Config file (default: trialmatch.yaml)`)
}

func run(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "trialmatch.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	src := catalog.NewLazy(func() (*catalog.Store, error) {
		return catalog.NewStore(cfg.Catalog.ProgramsCSV, cfg.Catalog.PersonsCSV, log)
	})
	defer src.Close()

	strategy, err := match.NewNameStrategy(cfg.Matcher.NameStrategy, cfg.Matcher.FuzzyThreshold)
	if err != nil {
		return err
	}
	matcher := match.NewMatcher(src, log)
	finder := match.NewFinder(src, strategy)

	switch cmd {
	case "programs":
		programs, err := src.Programs(ctx)
		if err != nil {
			return err
		}
		return printJSON(programs)

	case "candidates":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: trialmatch candidates PROGRAM_ID")
		}
		res, err := matcher.EligibleCandidates(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return printJSON(res)

	case "programs-for":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: trialmatch programs-for PERSON_ID")
		}
		res, err := matcher.EligiblePrograms(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return printJSON(res)

	case "find-program":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: trialmatch find-program QUERY")
		}
		p, score, err := finder.ProgramByName(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return printJSON(struct {
			Score int         `json:"score"`
			Match interface{} `json:"match"`
		}{score, p})

	case "find-person":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: trialmatch find-person QUERY")
		}
		c, score, err := finder.PersonByName(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return printJSON(struct {
			Score int         `json:"score"`
			Match interface{} `json:"match"`
		}{score, c})

	case "tools":
		registry := tool.NewRegistry(log)
		if err := tool.RegisterEnrollmentTools(registry, src, matcher, finder, log); err != nil {
			return err
		}
		backend := tool.NewDuckDuckGoBackend(cfg.Tools.SearchMaxQPS, cfg.Tools.SearchMaxBurst, log)
		if err := registry.Register(tool.NewWebSearchTool(backend, cfg.Tools.SearchCacheTTL, cfg.Tools.SearchPerMinute, log)); err != nil {
			return err
		}
		return printJSON(registry.Schemas())

	case "providers":
		providers, def, err := llm.FromConfig(cfg.LLM, log)
		if err != nil {
			return err
		}
		type providerInfo struct {
			Name    string `json:"name"`
			Model   string `json:"model,omitempty"`
			Default bool   `json:"default"`
		}
		out := make([]providerInfo, 0, len(providers))
		for _, pc := range cfg.LLM.Providers {
			p, ok := providers[pc.Name]
			if !ok {
				continue
			}
			out = append(out, providerInfo{Name: p.Name(), Model: pc.Model, Default: def != nil && pc.Name == def.Name()})
		}
		return printJSON(out)

	default:
		return fmt.Errorf("unknown command %q (run 'trialmatch help')", cmd)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
