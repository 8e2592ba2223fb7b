package config

import "chessgpt-local/engine/llm"

var DefaultConfig Config
var DefaultTheme Theme

func init() {
	DefaultTheme = Theme{
		DrawCursorBackground:   true,
		DrawLastMoveBackground: true,
		ShowCoordinates:        true,
		Colors: ConfigColors{
			LightSquare: 180,
			DarkSquare:  137,
			WhitePiece:  255,
			BlackPiece:  232,
			CursorBG:    4,
			SelectedBG:  3,
			LastMoveBG:  2,
			Coordinates: 244,
		},
		Symbols: ConfigSymbols{
			EmptySquare: ' ',
			Cursor:      '·',
		},
	}

	DefaultConfig = Config{
		Theme: DefaultTheme,
		Engine: EngineConfig{
			Path:     "stockfish",
			Threads:  2,
			MoveTime: "1s",
		},
		OpenAI: OpenAIConfig{
			SystemPrompt: llm.DefaultSystemPrompt,
			UserPrompt:   llm.DefaultUserPrompt,
		},
		Play: PlayConfig{
			White:         "gpt-3.5-turbo-instruct",
			Black:         "stockfish-3",
			AutoplayDelay: "200ms",
		},
	}
}
