package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/bookgraph/pkg/conversation"
)

var sessionID string

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask one question",
	Long: `Runs one turn and prints the reply. With --session the turn continues
the conversation held in the configured session store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), settings, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		msg := strings.Join(args, " ")
		var reply conversation.Reply
		if sessionID != "" {
			reply, err = a.engine.Chat(cmd.Context(), a.sessions, sessionID, msg)
		} else {
			reply, err = a.engine.HandleTurn(cmd.Context(), msg, nil)
		}
		if err != nil {
			return err
		}
		printReply(cmd.OutOrStdout(), reply)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long:  `Reads one message per line from stdin until EOF or "exit".`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), settings, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		id := sessionID
		if id == "" {
			id = uuid.NewString()
		}
		return chatLoop(cmd, a.engine, a.sessions, id)
	},
}

var traceCmd = &cobra.Command{
	Use:   "trace [run-id]",
	Short: "Show the stage-by-stage snapshots of a turn",
	Long: `Prints the turn state saved after each stage of a run. Requires a
checkpoint database (checkpoint.path or BOOKBOT_CHECKPOINT_PATH).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settings.Checkpoint.Path == "" {
			return fmt.Errorf("no checkpoint database configured")
		}
		store, err := openCheckpoints(settings.Checkpoint.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		snaps, err := conversation.ReadTrace(store, args[0])
		if err != nil {
			return err
		}
		return printTrace(cmd.OutOrStdout(), snaps)
	},
}

func init() {
	askCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session ID to continue")
	chatCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session ID to resume (default: new session)")
}

func chatLoop(cmd *cobra.Command, engine *conversation.Engine, store conversation.SessionStore, id string) error {
	out := cmd.OutOrStdout()
	prompt := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	dim.Fprintf(out, "session %s (type exit to quit)\n", id)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		prompt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := engine.Chat(cmd.Context(), store, id, line)
		if err != nil {
			color.New(color.FgRed).Fprintf(out, "error: %v\n", err)
			continue
		}
		printReply(out, reply)
		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}
	}
}

func printReply(w io.Writer, r conversation.Reply) {
	label := color.New(color.FgGreen, color.Bold)
	if r.Fallback {
		label = color.New(color.FgYellow, color.Bold)
	}
	label.Fprint(w, "bookbot> ")
	fmt.Fprintln(w, r.Text)
	color.New(color.Faint).Fprintf(w, "run %s  %s\n", r.RunID, strings.Join(r.Path, " > "))
}

func printTrace(w io.Writer, snaps []conversation.Snapshot) error {
	heading := color.New(color.FgCyan, color.Bold)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	for _, s := range snaps {
		heading.Fprintf(w, "#%d %s -> %s\n", s.Sequence, s.StageID, s.NextStage)
		if err := enc.Encode(s.State); err != nil {
			return err
		}
	}
	return nil
}
