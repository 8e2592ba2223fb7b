package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the move source variants.
type Kind int

const (
	KindRandom Kind = iota
	KindEngine
	KindLanguageModel
)

// PromptMode selects the language-model endpoint shape.
type PromptMode int

const (
	ModeCompletion PromptMode = iota
	ModeChat
)

func (m PromptMode) String() string {
	if m == ModeChat {
		return "chat"
	}
	return "completion"
}

const (
	MinLevel = 1
	MaxLevel = 20
)

// Descriptor is a closed tagged variant describing one move source.
// Only the fields of its Kind are meaningful.
type Descriptor struct {
	Kind  Kind
	Model string     // KindLanguageModel
	Mode  PromptMode // KindLanguageModel
	Level int        // KindEngine, 1..20
}

// Random returns the random mover descriptor.
func Random() Descriptor {
	return Descriptor{Kind: KindRandom}
}

// Engine returns a UCI engine descriptor at the given strength level.
func Engine(level int) Descriptor {
	return Descriptor{Kind: KindEngine, Level: level}
}

// LanguageModel returns a language-model descriptor.
func LanguageModel(model string, mode PromptMode) Descriptor {
	return Descriptor{Kind: KindLanguageModel, Model: model, Mode: mode}
}

// knownModels maps model ids to their endpoint shape and display name.
var knownModels = []struct {
	id    string
	mode  PromptMode
	label string
}{
	{"gpt-3.5-turbo-instruct", ModeCompletion, "GPT-3.5 Turbo Completions"},
	{"gpt-4", ModeChat, "GPT-4"},
	{"gpt-3.5-turbo", ModeChat, "GPT-3.5 Turbo"},
}

// ParseDescriptor parses a source identifier: "random", "stockfish-N",
// a known model id, or "model:chat" / "model:completion" for other models.
func ParseDescriptor(id string) (Descriptor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Descriptor{}, fmt.Errorf("empty source identifier")
	}
	if id == "random" {
		return Random(), nil
	}
	if rest, ok := strings.CutPrefix(id, "stockfish-"); ok {
		level, err := strconv.Atoi(rest)
		if err != nil || level < MinLevel || level > MaxLevel {
			return Descriptor{}, fmt.Errorf("invalid engine level in %q (want %d-%d)", id, MinLevel, MaxLevel)
		}
		return Engine(level), nil
	}
	for _, m := range knownModels {
		if m.id == id {
			return LanguageModel(m.id, m.mode), nil
		}
	}
	if model, mode, ok := strings.Cut(id, ":"); ok && model != "" {
		switch mode {
		case "chat":
			return LanguageModel(model, ModeChat), nil
		case "completion":
			return LanguageModel(model, ModeCompletion), nil
		}
	}
	return Descriptor{}, fmt.Errorf("unknown source %q", id)
}

// MustParse is like ParseDescriptor but panics on error. For static tables.
func MustParse(id string) Descriptor {
	d, err := ParseDescriptor(id)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the identifier accepted by ParseDescriptor.
func (d Descriptor) String() string {
	switch d.Kind {
	case KindEngine:
		return fmt.Sprintf("stockfish-%d", d.Level)
	case KindLanguageModel:
		for _, m := range knownModels {
			if m.id == d.Model && m.mode == d.Mode {
				return d.Model
			}
		}
		return d.Model + ":" + d.Mode.String()
	}
	return "random"
}

// Label returns the display name of the source.
func (d Descriptor) Label() string {
	switch d.Kind {
	case KindEngine:
		return fmt.Sprintf("Stockfish %d", d.Level)
	case KindLanguageModel:
		for _, m := range knownModels {
			if m.id == d.Model && m.mode == d.Mode {
				return m.label
			}
		}
		return d.Model
	}
	return "Random moves"
}

// Options lists the identifiers offered in source pickers.
func Options() []Descriptor {
	opts := make([]Descriptor, 0, len(knownModels)+1+MaxLevel)
	for _, m := range knownModels {
		opts = append(opts, LanguageModel(m.id, m.mode))
	}
	opts = append(opts, Random())
	for level := MinLevel; level <= MaxLevel; level++ {
		opts = append(opts, Engine(level))
	}
	return opts
}
