package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tickrx/internal/llm"
	"tickrx/internal/logger"
	"tickrx/internal/ranking"
)

var (
	ErrDisabled  = errors.New("narrative generator disabled")
	ErrMalformed = errors.New("malformed model output")
)

const DefaultTemperature float32 = 0.2

type Kind string

const (
	KindCrypto Kind = "crypto"
	KindStocks Kind = "stocks"
)

type PickRequest struct {
	Kind          Kind
	Candidates    []ranking.Candidate
	Limit         int
	TargetGainPct float64
	Risk          string
	Universe      string
}

// Rationale is what the model says about one symbol. Market figures are never
// taken from the model.
type Rationale struct {
	Symbol     string
	Why        string
	Suggestion string
}

type PickResult struct {
	Rationales []Rationale
	Notes      string
}

type Generator struct {
	llm         llm.Completer
	temperature float32
	log         *logger.Logger
}

// New returns a generator over c. A nil c gives a generator whose calls fail
// with ErrDisabled.
func New(c llm.Completer, temperature float32, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Generator{llm: c, temperature: temperature, log: log.WithField("component", "narrative")}
}

func (g *Generator) Enabled() bool {
	return g != nil && g.llm != nil
}

func (g *Generator) Picks(ctx context.Context, req PickRequest) (PickResult, error) {
	if !g.Enabled() {
		return PickResult{}, ErrDisabled
	}
	system, prompt, err := pickPrompts(req)
	if err != nil {
		return PickResult{}, err
	}

	text, err := g.llm.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: g.temperature,
		JSON:        true,
	})
	if err != nil {
		return PickResult{}, fmt.Errorf("generate picks: %w", err)
	}

	out, err := parsePicks(text)
	if err != nil {
		g.log.WithFields(map[string]any{
			"kind":   string(req.Kind),
			"output": llm.Clip(text, 300),
		}).WithError(err).Warn("discarding model picks")
		return PickResult{}, err
	}
	return out, nil
}

func (g *Generator) Answer(ctx context.Context, stock, question string) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	text, err := g.llm.Complete(ctx, llm.Request{
		System:      askSystemPrompt(stock),
		Prompt:      question,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", ErrMalformed)
	}
	return text, nil
}

// Report is the result of Analyze. Raw holds the model text and is set even
// when decoding fails.
type Report struct {
	Analysis AnalystReport
	Prompt   string
	Raw      string
}

func (g *Generator) Analyze(ctx context.Context, ticker, companyName string) (Report, error) {
	prompt := analysisPrompt(ticker, companyName)
	rep := Report{Prompt: prompt}
	if !g.Enabled() {
		return rep, ErrDisabled
	}

	text, err := g.llm.Complete(ctx, llm.Request{
		System:      analystSystemPrompt,
		Prompt:      prompt,
		Temperature: g.temperature,
		JSON:        true,
	})
	if err != nil {
		return rep, fmt.Errorf("generate analysis: %w", err)
	}
	rep.Raw = text

	if err := llm.DecodeJSON(text, &rep.Analysis); err != nil {
		g.log.WithField("ticker", ticker).WithError(err).Warn("analysis output not json")
		return rep, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rep.Analysis = sanitizeReport(rep.Analysis)
	return rep, nil
}

type pickEnvelope struct {
	Picks *[]rawPick `json:"picks"`
	Notes string     `json:"notes"`
}

type rawPick struct {
	Symbol     string `json:"symbol"`
	Why        string `json:"why"`
	Reasoning  string `json:"reasoning"`
	Suggestion string `json:"suggestion"`
}

func parsePicks(text string) (PickResult, error) {
	var env pickEnvelope
	if err := llm.DecodeJSON(text, &env); err != nil {
		return PickResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Picks == nil {
		return PickResult{}, fmt.Errorf("%w: missing picks", ErrMalformed)
	}

	out := PickResult{Rationales: make([]Rationale, 0, len(*env.Picks)), Notes: strings.TrimSpace(env.Notes)}
	for _, p := range *env.Picks {
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if symbol == "" {
			continue
		}
		why := strings.TrimSpace(p.Why)
		if why == "" {
			why = strings.TrimSpace(p.Reasoning)
		}
		out.Rationales = append(out.Rationales, Rationale{
			Symbol:     symbol,
			Why:        why,
			Suggestion: NormalizeSuggestion(p.Suggestion),
		})
	}
	return out, nil
}

// NormalizeSuggestion maps the model's call onto BUY, SELL or HOLD. Anything
// else becomes "".
func NormalizeSuggestion(s string) string {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "BUY", "SELL", "HOLD":
		return v
	default:
		return ""
	}
}

type promptCandidate struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	MarketCap *float64 `json:"mcap"`
	Volume24h *float64 `json:"volume24h"`
	Change1h  *float64 `json:"pct_1h"`
	Change24h *float64 `json:"pct_24h"`
	Change7d  *float64 `json:"pct_7d"`
	Score     float64  `json:"score"`
}

func candidateBlock(cs []ranking.Candidate) (string, error) {
	rows := make([]promptCandidate, len(cs))
	for i, c := range cs {
		rows[i] = promptCandidate{
			Symbol:    c.Symbol,
			Name:      c.Name,
			Price:     c.Price,
			MarketCap: c.MarketCap,
			Volume24h: c.Volume24h,
			Change1h:  c.Change1h,
			Change24h: c.Change24h,
			Change7d:  c.Change7d,
			Score:     c.Score,
		}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}
	return string(b), nil
}

