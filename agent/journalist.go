package agent

import (
	"context"
	"fmt"

	journal "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/renderer"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// Source returns the current journal.
type Source func(ctx context.Context) (journal.View, error)

// Func implements a simple Function
type Func struct {
	// Declare this function
	Decl *genai.FunctionDeclaration
	// Call this function
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

// NewJournalist creates the expert that reads the trading journal.
func NewJournalist(source Source, log zerolog.Logger) *Expert {
	lib := Functions(source)
	return &Expert{
		Name:      "Journalist",
		ModelName: model,
		Log:       log.With().Str("component", "agent").Logger(),
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are in charge of the user's trading journal: the buys and sells of their
				brokerage account, grouped by the day of the buy.

				Realised profit is what sells made over the cost of the shares they consumed,
				oldest shares first. Unrealised profit values the shares still held at the
				last traded price. Percents are relative to the cost.

				Use the available tools to read the journal before answering, never guess figures.
				Answer in markdown.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// Functions returns the tools reading the journal from source.
func Functions(source Source) []Function {
	return []Function{journalReport(source), accountSummary(source)}
}

func journalReport(source Source) *Func {
	const name = "journal_report"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: name,
			Description: `The trading journal: profits per month, week, day and instrument, most recent first.

			Without a month, the whole journal is returned.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"month": {
						Type:        genai.TypeString,
						Description: "Restrict the journal to a month, formatted as YYYY-MM.",
					},
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown document with the account summary and one section per month.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			v, err := source(ctx)
			if err != nil {
				return errorResponse(id, name, fmt.Errorf("could not load the journal: %w", err))
			}
			if m, ok := args["month"]; ok {
				month, ok := m.(string)
				if !ok {
					return errorResponse(id, name, fmt.Errorf("argument 'month' is not a string as expected but %T", m))
				}
				v, err = onlyMonth(v, month)
				if err != nil {
					return errorResponse(id, name, err)
				}
			}
			return outputResponse(id, name, renderer.JournalMarkdown(v))
		},
	}
}

func accountSummary(source Source) *Func {
	const name = "account_summary"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: "The evolution of the account balance since the first buy, realised and unrealised.",
			Parameters:  &genai.Schema{Type: genai.TypeObject},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown table of balances and profits.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			v, err := source(ctx)
			if err != nil {
				return errorResponse(id, name, fmt.Errorf("could not load the journal: %w", err))
			}
			return outputResponse(id, name, renderer.SummaryMarkdown(v.Summary, v.Currency))
		},
	}
}

func onlyMonth(v journal.View, month string) (journal.View, error) {
	d, err := journal.ParseDate(month + "-01")
	if err != nil {
		return v, fmt.Errorf("argument 'month' must be formatted as YYYY-MM, got %q", month)
	}
	var months []*journal.MonthBucket
	for _, m := range v.Months {
		if m.Start == d {
			months = append(months, m)
		}
	}
	v.Months = months
	return v, nil
}
