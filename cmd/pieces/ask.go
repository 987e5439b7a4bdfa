package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/llm"
	"github.com/tacticalblog/pieces/internal/semantic"
)

// defaultAskMinScore drops weakly related context before it reaches the model.
const defaultAskMinScore = 0.1

var (
	askFragments int
	askPieces    int
	askPieceID   int
	askMinScore  float64
	askShowOnly  bool
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().IntVar(&askFragments, "fragments", semantic.DefaultLimitFragments, "Context fragments to retrieve (0 for none)")
	askCmd.Flags().IntVar(&askPieces, "pieces", semantic.DefaultLimitPieces, "Context pieces to retrieve (0 for none)")
	askCmd.Flags().IntVar(&askPieceID, "piece-id", 0, "Only use context from this piece")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", defaultAskMinScore, "Drop context scoring below this similarity")
	askCmd.Flags().BoolVar(&askShowOnly, "prompt-only", false, "Print the grounded prompt without calling the model")
}

// AskResult is the response for the ask command.
type AskResult struct {
	Prompt  string          `json:"prompt"`
	Answer  string          `json:"answer,omitempty"`
	Model   string          `json:"model,omitempty"`
	Context semantic.Result `json:"context"`
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Answer a prompt grounded in retrieved fragments",
	Long: `Retrieve the fragments and pieces most similar to the prompt, then
stream a completion that cites them by reference, e.g. [#004-F001].

With --human the answer streams to stdout as it is generated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// askOptions converts the command flags into retrieval options.
func askOptions() semantic.Options {
	opts := semantic.Options{
		LimitFragments: semantic.ExplicitLimit(askFragments),
		LimitPieces:    semantic.ExplicitLimit(askPieces),
		MinScore:       askMinScore,
	}
	if askPieceID != 0 {
		opts.FilterPieceIDs = []int{askPieceID}
	}
	return opts
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		exitWithError(ExitError, "prompt is required")
	}

	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)
	var generator llm.Generator
	if !askShowOnly {
		generator = mustGenerator(cfg)
	}
	svc := newService(root, cfg, embedding.NewQueryEmbedder(mustProvider(cfg)))

	retrieved, err := svc.RetrieveContext(ctx, prompt, askOptions())
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	userPrompt := llm.BuildContextPrompt(prompt, retrieved)

	if askShowOnly {
		if humanOutput {
			fmt.Println(userPrompt)
		} else {
			outputJSON(AskResult{Prompt: userPrompt, Context: retrieved})
		}
		return nil
	}

	var answer strings.Builder
	err = generator.Stream(ctx, llm.BuildSystemPrompt(), userPrompt, func(token string) error {
		answer.WriteString(token)
		if humanOutput {
			_, err := fmt.Fprint(os.Stdout, token)
			return err
		}
		return nil
	})
	if humanOutput {
		fmt.Println()
	}
	if err != nil {
		exitWithError(ExitProviderError, "generating answer: %v", err)
	}

	if !humanOutput {
		outputJSON(AskResult{
			Prompt:  userPrompt,
			Answer:  answer.String(),
			Model:   cfg.LLM.Model,
			Context: retrieved,
		})
	}
	return nil
}

// mustGenerator creates the completion client, failing before any retrieval
// work when its credential is missing.
func mustGenerator(cfg *config.GlobalConfig) llm.Generator {
	generator, err := llm.NewGenerator(
		cfg.LLM.Provider,
		config.GetConfigValue(cfg.LLM.APIKeyEnv, ""),
		cfg.LLM.Model,
		cfg.LLM.BaseURL,
	)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		exitWithError(exitCodeFor(err), "%v: set %s", err, cfg.LLM.APIKeyEnv)
	}
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return generator
}
