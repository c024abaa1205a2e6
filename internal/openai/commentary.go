package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"kellyBotTrade/internal/finance"
)

const commentarySystemPrompt = `You are a quantitative analyst explaining a backtest to a retail trader.
The backtest compares holding an asset fully ("all-in") with sizing each step by a Kelly fraction.
The Kelly fraction comes from the average one-step return observed in a bucket of similar past values.

Your response must follow this exact structure:

**What happened:**
[Two or three sentences comparing the two paths]

**Why:**
[Explain how the bucketed edges drove the bet sizes]

**Caveats:**
[In-sample estimation, few samples per bucket, no costs or slippage]

Guidelines:
- Use only the numbers given, never invent data
- Keep it under 200 words
- No investment advice`

// Commentator turns a Kelly report into a short plain-language readout.
type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = "gpt-4"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

// ExplainKelly asks the model to comment on a finished backtest.
func (c *Commentator) ExplainKelly(ctx context.Context, report *finance.KellyReport) (string, error) {
	if report == nil || report.Result == nil {
		return "", errors.New("empty report")
	}

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(commentarySystemPrompt),
			oa.UserMessage(reportPrompt(report)),
		},
		MaxTokens: oa.Int(600), // Limit response length for telegram
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// reportPrompt renders the facts of a report as the user message.
func reportPrompt(report *finance.KellyReport) string {
	res := report.Result
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s, interval %s, window %s, %d observations.\n",
		report.Symbol, report.Interval, report.Range, len(res.AllIn))
	fmt.Fprintf(&b, "Buckets: %d (lookup %s), fraction cap %.2f. Bet on %d of %d steps.\n",
		report.Config.Bins, report.Config.Lookup, report.Config.MaxFraction, report.BetSteps, len(res.Steps))
	fmt.Fprintf(&b, "All-in: %.4f -> %.4f\n", res.AllIn[0].Value, res.AllIn.Final())
	fmt.Fprintf(&b, "Kelly: %.4f -> %.4f\n", res.Kelly[0].Value, res.Kelly.Final())
	writeStats(&b, "All-in", report.AllInStats)
	writeStats(&b, "Kelly", report.KellyStats)

	if t := res.Table; t != nil {
		b.WriteString("Bucket edges (lower bound: mean return, samples):\n")
		for _, bin := range t.Bins {
			if !bin.Defined() {
				continue
			}
			fmt.Fprintf(&b, "  %.4f: %+.4f%%, n=%d\n", bin.Lower, bin.Edge*100, bin.Count)
		}
	}
	return b.String()
}

func writeStats(b *strings.Builder, label string, s *finance.TrajectoryStats) {
	if s == nil {
		return
	}
	fmt.Fprintf(b, "%s stats: total %.2f%%, annual %.2f%%, volatility %.2f%%, Sharpe %.2f, max drawdown %.2f%%\n",
		label, s.TotalReturn, s.AnnualReturn, s.Volatility, s.SharpeRatio, s.MaxDrawdown)
}
