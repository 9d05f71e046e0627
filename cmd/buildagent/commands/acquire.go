package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/buildagent/internal/acquire"
	"git.home.luguber.info/inful/buildagent/internal/agent"
	"git.home.luguber.info/inful/buildagent/internal/config"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
	"git.home.luguber.info/inful/buildagent/internal/provider"
	"git.home.luguber.info/inful/buildagent/internal/trace"
)

// AcquireCmd runs a single acquisition without a dispatcher, for diagnosing
// repository/credential problems on a build machine.
type AcquireCmd struct {
	URL        string `arg:"" help:"Repository URL"`
	Target     string `short:"t" help:"Target directory" default:"./src"`
	Branch     string `short:"b" help:"Branch ref" default:"refs/heads/main"`
	Commit     string `help:"Explicit 40-hex commit (overrides branch)"`
	Type       string `help:"Provider type (external|github|githubenterprise|bitbucket|centralhosted)" default:"external"`
	Username   string `short:"u" help:"Credential username"`
	Password   string `short:"p" help:"Credential password or token" env:"ACQUIRE_PASSWORD"`
	Clean      bool   `help:"Run a clean before reusing an existing tree"`
	Submodules bool   `help:"Update submodules"`
	Depth      int    `help:"Fetch depth (0 = full history)" default:"0"`
	LFS        bool   `name:"lfs" help:"Fetch LFS content"`
	Expose     bool   `help:"Leave credentials in the on-disk config"`
}

func (a *AcquireCmd) Run(cli *CLI) error {
	settings, err := config.Load(cli.Config)
	if err != nil {
		// Diagnostics should work on an unconfigured machine too.
		slog.Debug("No usable settings file; using defaults")
		settings = &config.Settings{}
		settings.Defaults()
	}

	target, err := filepath.Abs(a.Target)
	if err != nil {
		return fmt.Errorf("resolve target path: %w", err)
	}

	credential := provider.None
	if a.Username != "" || a.Password != "" {
		credential = provider.Basic(a.Username, a.Password)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := agent.InstallInterruptHandler(cancel)
	defer stop()

	sink := trace.NewSlogSink(slog.Default(), trace.NewRegistry())
	git, err := gitcli.NewClient(ctx, sink, gitcli.BinaryOptions{PreferPath: settings.PreferGitFromPath})
	if err != nil {
		return err
	}

	opts := acquire.Options{
		Descriptor: acquire.Descriptor{
			Alias:             filepath.Base(target),
			Type:              provider.RepositoryType(a.Type),
			URL:               a.URL,
			Branch:            a.Branch,
			Commit:            a.Commit,
			TargetPath:        target,
			Clean:             a.Clean,
			Submodules:        a.Submodules,
			NestedSubmodules:  a.Submodules,
			FetchDepth:        a.Depth,
			LFS:               a.LFS,
			ExposeCredentials: a.Expose,
		},
		Credential: credential,
		Certs:      settings.Certs,
		Proxy:      settings.Proxy,
		System:     acquire.SystemConnection{URL: settings.ServerURL},
		TempDir:    settings.TempDir,
	}
	if err := acquire.New(git, sink, nil).Acquire(ctx, opts); err != nil {
		slog.Error("Acquisition failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Acquisition complete", "target", target)
	return nil
}
