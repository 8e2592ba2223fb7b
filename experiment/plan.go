// Package experiment runs batches of games between move sources and tallies
// their results.
package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chessgpt-local/engine"
	"chessgpt-local/game"
)

// Selector picks the pair that should play the next move of g.
type Selector func(g *game.Game) engine.Pair

// GameResult is one finished game of a plan.
type GameResult struct {
	PGN         string      `json:"pgn"`
	Description string      `json:"state_description"`
	Winner      game.Winner `json:"winner"`
	File        string      `json:"file,omitempty"`
}

// Aggregate counts a plan's results.
type Aggregate struct {
	WhiteWins int    `json:"white_wins"`
	Draws     int    `json:"draws"`
	BlackWins int    `json:"black_wins"`
	Summary   string `json:"summary"`
}

// Tally aggregates results.
func Tally(results []GameResult) Aggregate {
	var a Aggregate
	for _, r := range results {
		switch r.Winner {
		case game.WinnerWhite:
			a.WhiteWins++
		case game.WinnerDraw:
			a.Draws++
		case game.WinnerBlack:
			a.BlackWins++
		}
	}
	a.Summary = fmt.Sprintf("White wins: %d, draws: %d, black wins: %d", a.WhiteWins, a.Draws, a.BlackWins)
	return a
}

// Plan is a named batch of games played with the same pairing rule.
type Plan struct {
	Name   string       `json:"name"`
	Select Selector     `json:"-"`
	Games  int          `json:"target_games"`
	Played []GameResult `json:"games"`
	Done   bool         `json:"completed"`
	Result *Aggregate   `json:"result,omitempty"`
}

// Openings returns a selector that plays opening while no more than plies
// half-moves have been made, then main.
func Openings(plies int, opening, main engine.Pair) Selector {
	return func(g *game.Game) engine.Pair {
		if g.HistoryLen() > plies {
			return main
		}
		return opening
	}
}

// Fixed returns a selector that always plays p.
func Fixed(p engine.Pair) Selector {
	return func(*game.Game) engine.Pair { return p }
}

// DefaultPlans returns the built-in comparison of the completion model
// against a weak engine, with and without random openings.
func DefaultPlans() []*Plan {
	model := engine.MustParse("gpt-3.5-turbo-instruct")
	weakest := engine.Engine(1)
	random := engine.Random()
	randoms := engine.Pair{White: random, Black: random}
	vsEngine := engine.Pair{White: model, Black: weakest}
	vsRandom := engine.Pair{White: model, Black: random}

	return []*Plan{
		{Name: "GPT-3.5 Turbo Instruct vs Stockfish 1", Select: Fixed(vsEngine), Games: 10},
		{Name: "Random 10 then GPT-3.5 Turbo Instruct vs Stockfish 1", Select: Openings(10, randoms, vsEngine), Games: 10},
		{Name: "Random 20 then GPT-3.5 Turbo Instruct vs Stockfish 1", Select: Openings(20, randoms, vsEngine), Games: 10},
		{Name: "Random 20 then GPT-3.5 Turbo Instruct", Select: Openings(20, randoms, vsRandom), Games: 10},
		{Name: "Random 10 GPT-3.5 Turbo Instruct", Select: Openings(15, randoms, vsRandom), Games: 10},
	}
}

// planFile is the YAML layout of a plan file:
//
//	plans:
//	  - name: Random 10 then GPT-4 vs Stockfish 2
//	    games: 5
//	    opening_plies: 10
//	    opening: {white: random, black: random}
//	    white: gpt-4
//	    black: stockfish-2
type planFile struct {
	Plans []planSpec `yaml:"plans"`
}

type planSpec struct {
	Name         string   `yaml:"name"`
	Games        int      `yaml:"games"`
	OpeningPlies int      `yaml:"opening_plies"`
	Opening      pairSpec `yaml:"opening"`
	White        string   `yaml:"white"`
	Black        string   `yaml:"black"`
}

type pairSpec struct {
	White string `yaml:"white"`
	Black string `yaml:"black"`
}

func (p pairSpec) parse() (engine.Pair, error) {
	white, err := engine.ParseDescriptor(p.White)
	if err != nil {
		return engine.Pair{}, fmt.Errorf("white: %w", err)
	}
	black, err := engine.ParseDescriptor(p.Black)
	if err != nil {
		return engine.Pair{}, fmt.Errorf("black: %w", err)
	}
	return engine.Pair{White: white, Black: black}, nil
}

// LoadPlans reads plans from a YAML file.
func LoadPlans(path string) ([]*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	return ParsePlans(data)
}

// ParsePlans decodes YAML plan definitions.
func ParsePlans(data []byte) ([]*Plan, error) {
	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("parse plans: no plans defined")
	}

	plans := make([]*Plan, 0, len(file.Plans))
	for i, spec := range file.Plans {
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("Plan %d", i+1)
		}
		if spec.Games <= 0 {
			return nil, fmt.Errorf("plan %q: games must be positive", spec.Name)
		}
		main, err := pairSpec{White: spec.White, Black: spec.Black}.parse()
		if err != nil {
			return nil, fmt.Errorf("plan %q: %w", spec.Name, err)
		}
		sel := Fixed(main)
		if spec.OpeningPlies > 0 {
			opening, err := spec.Opening.parse()
			if err != nil {
				return nil, fmt.Errorf("plan %q: opening %w", spec.Name, err)
			}
			sel = Openings(spec.OpeningPlies, opening, main)
		}
		plans = append(plans, &Plan{Name: spec.Name, Select: sel, Games: spec.Games})
	}
	return plans, nil
}
