// Package cli parses voicereply command lines into a Parsed invocation.
// Parsing never runs anything; internal/app dispatches the result.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/spf13/cobra"
)

type Command string

const (
	CommandDecide     Command = "decide"
	CommandExplain    Command = "explain"
	CommandMode       Command = "mode"
	CommandCorrect    Command = "correct"
	CommandInput      Command = "input"
	CommandStatus     Command = "status"
	CommandReply      Command = "reply"
	CommandSynthesize Command = "synthesize"
	CommandSend       Command = "send"
	CommandPreview    Command = "preview"
	CommandDoctor     Command = "doctor"
	CommandServe      Command = "serve"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// Parsed is one fully validated invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// Local skips forwarding to a running daemon.
	Local bool
	JSON  bool

	// Text is the reply text; "-" or empty means read stdin.
	Text        string
	UserMessage string
	Mode        modality.Mode
	Duration    time.Duration
	Destination string
	Sink        string
}

// Parse validates args. Usage errors are returned, never printed.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	root := newRoot(&parsed)
	// A nil slice would make cobra fall back to os.Args.
	root.SetArgs(append([]string{}, args...))

	if _, err := root.ExecuteC(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders top-level usage.
func HelpText(binaryName string) string {
	root := newRoot(&Parsed{})
	root.Use = binaryName
	return root.UsageString()
}

func newRoot(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "voicereply",
		Short: "Decide whether a chat reply goes out as voice or text",
		Long: `voicereply decides, per outbound reply, between synthesized speech and
plain text, and runs the synthesis pipeline when speech wins.

Commands forward to a running "voicereply serve" daemon when one is
listening on $XDG_RUNTIME_DIR/voicereply.sock and run in-process otherwise.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetHelpFunc(func(*cobra.Command, []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	})

	root.Flags().BoolVar(&showVersion, "version", false, "show version")
	flags := root.PersistentFlags()
	flags.StringVarP(&parsed.ConfigPath, "config", "c", "", "config file path (default: $XDG_CONFIG_HOME/voicereply/config.jsonc)")
	flags.BoolVar(&parsed.Local, "local", false, "run in-process even when a daemon is listening")

	selected := func(cmd Command) {
		parsed.Command = cmd
		parsed.ShowHelp = false
	}

	textCommand := func(cmd Command, short string, withUserMessage bool, withDestination bool) *cobra.Command {
		c := &cobra.Command{
			Use:   string(cmd) + " [text|-]",
			Short: short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				selected(cmd)
				if len(args) == 1 {
					parsed.Text = args[0]
				}
				return nil
			},
		}
		if withUserMessage {
			c.Flags().StringVarP(&parsed.UserMessage, "user-message", "u", "", "the inbound message being answered")
		}
		if withDestination {
			c.Flags().StringVar(&parsed.Destination, "to", "", "destination passed to the send command as {destination}")
		}
		return c
	}

	decide := textCommand(CommandDecide, "Print voice or text for a reply", true, false)
	explain := textCommand(CommandExplain, "Print the rules and weighted signals behind a decision", true, false)
	explain.Flags().BoolVar(&parsed.JSON, "json", false, "print the trace as JSON")
	reply := textCommand(CommandReply, "Decide, then synthesize and send when voice wins", true, true)
	synthesize := textCommand(CommandSynthesize, "Synthesize a voice artifact and print its path and duration", false, false)
	send := textCommand(CommandSend, "Synthesize and send a reply as voice", false, true)
	preview := textCommand(CommandPreview, "Synthesize a reply and play it locally", false, false)
	preview.Flags().StringVar(&parsed.Sink, "sink", "", "pulse sink id or description substring")

	mode := &cobra.Command{
		Use:   "mode <auto|voice|text>",
		Short: "Set the explicit reply mode",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("mode requires exactly one of auto, voice, or text")
			}
			m, err := modality.Parse(args[0])
			if err != nil {
				return err
			}
			parsed.Mode = m
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			if parsed.Duration < 0 {
				return fmt.Errorf("--for must not be negative, got %s", parsed.Duration)
			}
			selected(CommandMode)
			return nil
		},
	}
	mode.Flags().DurationVar(&parsed.Duration, "for", 0, "revert to auto after this long (e.g. 30m); 0 keeps the mode")

	preference := func(cmd Command, short string) *cobra.Command {
		return &cobra.Command{
			Use:   string(cmd) + " <voice|text>",
			Short: short,
			Args: func(_ *cobra.Command, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("%s requires exactly one of voice or text", cmd)
				}
				m, err := modality.ParsePreference(args[0])
				if err != nil {
					return err
				}
				parsed.Mode = m
				return nil
			},
			RunE: func(*cobra.Command, []string) error {
				selected(cmd)
				return nil
			},
		}
	}

	status := simple(CommandStatus, "Print the current mode and learned state", selected)
	status.Flags().BoolVar(&parsed.JSON, "json", false, "print state as JSON")

	root.AddCommand(
		decide,
		explain,
		reply,
		mode,
		preference(CommandCorrect, "Record that the last reply should have used this modality"),
		preference(CommandInput, "Record the modality of the user's latest message"),
		status,
		synthesize,
		send,
		preview,
		simple(CommandDoctor, "Run configuration and environment checks", selected),
		simple(CommandServe, "Run the daemon on the runtime socket", selected),
		simple(CommandVersion, "Print version information", selected),
	)
	return root
}

func simple(cmd Command, short string, selected func(Command)) *cobra.Command {
	return &cobra.Command{
		Use:   string(cmd),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			selected(cmd)
			return nil
		},
	}
}

// IsStdin reports whether the text should come from standard input.
func (p Parsed) IsStdin() bool {
	return strings.TrimSpace(p.Text) == "" || p.Text == "-"
}
