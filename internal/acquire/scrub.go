package acquire

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/buildagent/internal/journal"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/trace"
	"git.home.luguber.info/inful/buildagent/internal/urlutil"
	"git.home.luguber.info/inful/buildagent/internal/workspace"
)

// ScrubLeftovers removes credentials recorded in the journal by a previous
// agent process that died before Finalize. Runs once at startup, before the
// run loop accepts work. Best-effort: a target whose tree is gone is simply
// cleared.
func ScrubLeftovers(ctx context.Context, git Git, jr *journal.Store, sink trace.Sink) error {
	targets, err := jr.Targets(ctx)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := jr.ForTarget(ctx, target)
		if err != nil {
			return err
		}
		if !workspace.HasWorkingTree(target) {
			slog.Info("Journaled working tree no longer exists; clearing records", logfields.Target(target))
			if err := jr.ClearTarget(ctx, target); err != nil {
				return err
			}
			continue
		}
		slog.Info("Scrubbing leftover credentials from interrupted acquisition",
			logfields.Target(target))
		for _, entry := range entries {
			sink.SetSecret(entry.Value)
			if entry.Key == "remote.origin.url" || entry.Key == "remote.origin.pushurl" {
				sanitized := urlutil.StripCredentials(entry.Value)
				if code, err := git.RemoteSetURL(ctx, target, "origin", sanitized, nil); err != nil {
					return err
				} else if code != 0 {
					if err := replaceConfigText(target, entry.Value, sanitized); err != nil {
						return err
					}
				}
				continue
			}
			if code, err := git.ConfigUnset(ctx, target, entry.Key); err != nil {
				return err
			} else if code != 0 {
				if err := removeConfigLine(target, entry.Key, entry.Value); err != nil {
					return err
				}
			}
		}
		if err := jr.ClearTarget(ctx, target); err != nil {
			return err
		}
	}
	if len(targets) > 0 {
		slog.Info("Startup credential scrub complete", slog.String("targets", strings.Join(targets, ", ")))
	}
	return nil
}
