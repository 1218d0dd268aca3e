package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/sessiontable/internal/config"
	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ErrNotFound is returned by get when no record exists.
var ErrNotFound = errors.New("session not found")

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the session table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			switch a.cfg.Driver {
			case config.DriverSQLite:
				a.out.Success("Table %q ready in %s", a.cfg.Table, a.cfg.Path)
			default:
				a.out.Success("Store %q ready", a.cfg.Driver)
			}
			return nil
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Print the payload of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			payload, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if payload == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, args[0])
			}
			return a.out.JSON(payload)
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "set [session-id] <json>",
		Short: "Create or replace a session payload",
		Long: `Writes the JSON object as the session payload. The expiration is taken from the
payload's "maxAge" or "cookie.maxAge" (milliseconds), or from the default TTL.
With --new a random session id is generated and printed.`,
		Example: `  sessiontable set abc '{"userId":123,"cookie":{"maxAge":60000}}'
  sessiontable set --new '{"userId":123}'`,
		Args: func(cmd *cobra.Command, args []string) error {
			if generate {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, raw := "", args[len(args)-1]
			if generate {
				sessionID = uuid.NewString()
			} else {
				sessionID = args[0]
			}

			payload, err := parsePayload(raw)
			if err != nil {
				return err
			}

			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Set(cmd.Context(), sessionID, payload); err != nil {
				return err
			}

			if generate {
				a.out.Line("%s", sessionID)
				return nil
			}
			a.out.Success("Session %q saved", sessionID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&generate, "new", false, "Generate a random session id")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <session-id>...",
		Aliases: []string{"delete", "destroy"},
		Short:   "Remove sessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, sessionID := range args {
				if err := store.Destroy(cmd.Context(), sessionID); err != nil {
					return err
				}
				a.out.Success("Session %q removed", sessionID)
			}
			return nil
		},
	}
}

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "Print every stored payload as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			payloads, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			return a.out.JSON(payloads)
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored sessions, expired ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Length(cmd.Context())
			if err != nil {
				return err
			}
			a.out.Line("%d", n)
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to remove every session without --yes")
			}

			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			a.out.Success("All sessions removed")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm removal of every session")
	return cmd
}

func newTouchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <session-id> [json]",
		Short: "Extend the expiration of a session without changing its payload",
		Long: `Recomputes the expiration from the given JSON (its "maxAge" or "cookie.maxAge")
or from the default TTL when omitted. Touching a missing session does nothing.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := domain.Payload{}
			if len(args) == 2 {
				var err error
				if payload, err = parsePayload(args[1]); err != nil {
					return err
				}
			}

			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Touch(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			a.out.Success("Session %q touched", args[0])
			return nil
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove sessions whose expiration has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			if removed == 0 {
				a.out.Warn("No expired sessions")
				return nil
			}
			a.out.Success("%d expired session(s) removed", removed)
			return nil
		},
	}
}

func parsePayload(raw string) (domain.Payload, error) {
	payload, err := domain.UnmarshalPayload([]byte(strings.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}
