package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"attendbot/internal/app"
	"attendbot/internal/calendar"
	"attendbot/internal/config"
	"attendbot/internal/storage"
	logx "attendbot/pkg/logx"
)

func leaveCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("leave: expected list, add or remove\n" + usage)
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("leave "+sub, flag.ContinueOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config (json or yaml)")
	from := fs.String("from", "", "first day off (YYYY-MM-DD)")
	to := fs.String("to", "", "last day off (YYYY-MM-DD), defaults to -from")
	kind := fs.String("type", "annual", "leave type")
	reason := fs.String("reason", "", "free-form note")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only the storage section matters here.
	cfg, err := config.NewConfigManager(*cfgPath).Parse()
	if err == nil {
		err = cfg.ValidateStorage()
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", *cfgPath, err)
	}
	log := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "leave"))
	st, err := app.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("leave: %w (set storage.driver to file or sqlite)", storage.ErrDisabled)
	}
	defer st.Close()
	leaves := calendar.NewLeaveCache(st, 0, log)

	switch sub {
	case "list":
		return listLeaves(ctx, leaves)
	case "add":
		l, err := leaveFromFlags(*from, *to)
		if err != nil {
			return err
		}
		l.Type = strings.TrimSpace(*kind)
		l.Reason = strings.TrimSpace(*reason)
		err = leaves.Add(ctx, l)
		audit(ctx, st, log, "leave.add", l.String(), err)
		if err != nil {
			return err
		}
		fmt.Println("added:", l)
		return nil
	case "remove":
		l, err := leaveFromFlags(*from, *to)
		if err != nil {
			return err
		}
		removed, err := leaves.Remove(ctx, l.Start, l.End)
		if err == nil && !removed {
			err = fmt.Errorf("no leave from %s to %s", l.Start, l.End)
		}
		audit(ctx, st, log, "leave.remove", l.String(), err)
		if err != nil {
			return err
		}
		fmt.Println("removed:", l.Start, "..", l.End)
		return nil
	default:
		return fmt.Errorf("leave: unknown subcommand %q", sub)
	}
}

func listLeaves(ctx context.Context, leaves *calendar.LeaveCache) error {
	list, err := leaves.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no leave recorded")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tEND\tDAYS\tTYPE\tREASON")
	for _, l := range list {
		days := int(l.End.In(time.UTC).Sub(l.Start.In(time.UTC)).Hours()/24) + 1
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.Start, l.End, days, l.Type, l.Reason)
	}
	return w.Flush()
}

func leaveFromFlags(from, to string) (calendar.Leave, error) {
	if strings.TrimSpace(from) == "" {
		return calendar.Leave{}, errors.New("-from is required")
	}
	start, err := calendar.ParseDate(from)
	if err != nil {
		return calendar.Leave{}, err
	}
	end := start
	if strings.TrimSpace(to) != "" {
		if end, err = calendar.ParseDate(to); err != nil {
			return calendar.Leave{}, err
		}
	}
	l := calendar.Leave{Start: start, End: end}
	return l, l.Validate()
}

// audit records the edit; a failed audit write never fails the command.
func audit(ctx context.Context, st storage.Store, log logx.Logger, action, target string, opErr error) {
	e := storage.AuditEntry{
		At:     time.Now(),
		Actor:  os.Getenv("USER"),
		Action: action,
		Target: target,
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	if err := st.AppendAudit(ctx, e); err != nil {
		log.Warn("audit write failed", logx.Err(err))
	}
}
