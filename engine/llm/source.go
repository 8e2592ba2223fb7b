package llm

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"chessgpt-local/engine"
	"chessgpt-local/game"
	"chessgpt-local/logging"
)

// DefaultUserPrompt is a PGN tag section that frames the movetext as a top-level game.
const DefaultUserPrompt = "[Event \"FIDE World Championship Match 2024\"]\n" +
	"[Site \"Los Angeles, USA\"]\n" +
	"[Date \"2024.12.01\"]\n" +
	"[Round \"5\"]\n" +
	"[White \"Carlsen, Magnus\"]\n" +
	"[Black \"Nepomniachtchi, Ian\"]\n" +
	"[Result \"1-0\"]\n" +
	"[WhiteElo \"2885\"]\n" +
	"[WhiteTitIe \"GM\"]\n" +
	"[WhiteFideId \"1503014\"]\n" +
	"[BlackElo \"2812\"]\n" +
	"[BIackTitle \"GM\"]\n" +
	"[BlackFideId \"4168119\"]\n" +
	"[TimeControl \"40/7200:20/3600:900+30\"]\n" +
	"[UTCDate \"2024.11.27\"]\n" +
	"[UTCTime \"09:01:25\"]\n" +
	"[Variant \"Standard\"]\n\n"

// DefaultSystemPrompt is sent as the system message in chat mode.
const DefaultSystemPrompt = "You are a Chess grandmaster that helps analyze and predict live chess games. " +
	"Given the algebraic notation for a given match, predict the next move. " +
	"Do not return anything except for the algebraic notation for your prediction."

// Source asks a language model for the next move.
type Source struct {
	Backend      Backend
	Model        string
	Mode         engine.PromptMode
	SystemPrompt string
	UserPrompt   string
	Logger       *log.Logger
}

var _ engine.Source = (*Source)(nil)

// NewSource creates a source for d with the default prompts.
func NewSource(b Backend, d engine.Descriptor, logger *log.Logger) *Source {
	return &Source{
		Backend:      b,
		Model:        d.Model,
		Mode:         d.Mode,
		SystemPrompt: DefaultSystemPrompt,
		UserPrompt:   DefaultUserPrompt,
		Logger:       logging.OrDiscard(logger),
	}
}

// Prompt returns the user prompt for g: the preamble followed by the movetext.
func (s *Source) Prompt(g *game.Game) string {
	prompt := s.UserPrompt + g.Notation()
	if prompt == "" {
		return "1. "
	}
	return prompt
}

// NextMove requests a continuation and returns it if it names a legal move.
func (s *Source) NextMove(ctx context.Context, g *game.Game) (game.Move, error) {
	if g.Over() || g.InDraw() {
		return game.Move{}, engine.ErrNoMove
	}
	legal := g.LegalMoves()
	if len(legal) == 0 {
		return game.Move{}, engine.ErrNoMove
	}

	var raw string
	var err error
	if s.Mode == engine.ModeChat {
		raw, err = s.Backend.Chat(ctx, s.Model, s.SystemPrompt, s.Prompt(g))
	} else {
		raw, err = s.Backend.Complete(ctx, s.Model, s.Prompt(g))
	}
	if err != nil {
		return game.Move{}, err
	}

	choice := ExtractCandidate(raw)
	found := false
	for _, san := range legal {
		if san == choice {
			found = true
			break
		}
	}
	s.logger().Debug("model answer", "model", s.Model, "raw", raw, "choice", choice, "found", found)
	if !found {
		return game.Move{}, engine.ErrNoMove
	}
	return g.Clone().ApplySAN(choice)
}

func (s *Source) logger() *log.Logger {
	return logging.OrDiscard(s.Logger)
}

// ExtractCandidate returns the first token of a model answer that is not a
// move number, e.g. "e4" for " 1. e4 e5". Tokens are split on single spaces.
func ExtractCandidate(raw string) string {
	for _, tok := range strings.Split(strings.TrimSpace(raw), " ") {
		if !strings.Contains(tok, ".") {
			return tok
		}
	}
	return ""
}
