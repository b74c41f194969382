package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	journal "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	live bool
}

func (*assistCmd) Name() string { return "assist" }

func (*assistCmd) Synopsis() string { return "start an interactive session with the AI assistant" }

func (*assistCmd) Usage() string {
	return `tj assist [-live] [question...]

  Start an interactive session with an assistant that reads the journal.
  Words after the flags are sent as the first question.

  Requires a Gemini API key in $GEMINI_API_KEY or $GOOGLE_API_KEY.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.live, "live", false, "Price open positions with the last traded price.")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := strings.Join(f.Args(), " ")

	log := newLogger()
	s, closeStore, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	in, err := newIngestor(s, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	source := func(ctx context.Context) (journal.View, error) {
		return loadView(ctx, in, c.live)
	}
	a := agent.New(os.Stdout, os.Stdin, agent.NewJournalist(source, log))
	a.Print = func(w io.Writer, answer string) { printMarkdown(answer) }

	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
