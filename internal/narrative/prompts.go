package narrative

import (
	"fmt"
	"strings"
)

const cryptoSystemPrompt = "You are an expert crypto day trader. Be concise, pragmatic, and risk-aware."

const stockSystemPrompt = `You are an expert US stock day trader with advanced TradingView knowledge.
Return ONLY valid JSON, no prose.
Use concise, data-driven reasoning referencing RSI, MACD, MA crossovers, support/resistance,
volume spikes, and near-term catalysts. Only pick tickers from the candidate list with realistic
momentum for a ~%g%% short-term move.`

const analystSystemPrompt = "You are a precise Wall Street equity analyst. Output must be valid JSON."

func pickPrompts(req PickRequest) (system, user string, err error) {
	block, err := candidateBlock(req.Candidates)
	if err != nil {
		return "", "", err
	}
	limit := req.Limit
	if limit <= 0 || limit > len(req.Candidates) {
		limit = len(req.Candidates)
	}
	target := req.TargetGainPct
	if target <= 0 {
		target = 5
	}

	switch req.Kind {
	case KindStocks:
		risk := req.Risk
		if risk == "" {
			risk = "medium"
		}
		universe := req.Universe
		if universe == "" {
			universe = "US"
		}
		user = fmt.Sprintf(`Universe: %s. Risk: %s.
Indicators to consider: RSI, MACD, MA20/50, Volume, Support/Resistance.
Target short-term gain: ~%g%%.
LIMIT: %d.

Return an object:
{
  "picks": [
    {
      "symbol": "TICKER",
      "why": "why a ~%g%% move is plausible (1-2 sentences)",
      "suggestion": "BUY" | "SELL" | "HOLD"
    }
  ],
  "notes": "optional brief portfolio-level note"
}
Pick at most LIMIT symbols, best first, only from the candidates below.

Candidates:
%s
`, universe, risk, target, limit, target, block)
		return fmt.Sprintf(stockSystemPrompt, target), user, nil

	default:
		user = fmt.Sprintf(`Check the following market snapshot.
Pick the %d cryptocurrencies most likely to move up to ~%g%% within a short day-trading window.
Prioritize: healthy liquidity (volume), steady 1h momentum, moderate 24h move (room to reach ~%g%%), and avoid obvious pump/dump patterns.
Only use symbols from the candidates, best first.

Return strictly this JSON:
{
  "picks": [
    { "symbol": "", "why": "1-2 sentences explaining the edge" }
  ]
}

Candidates:
%s
`, limit, target, target, block)
		return cryptoSystemPrompt, user, nil
	}
}

func askSystemPrompt(stock string) string {
	return strings.ReplaceAll(`You are an expert stock analyst with deep knowledge of equity research, financial statements, valuation metrics, market trends, and company fundamentals.

Always assume the user's question is about the specified stock: {stock}.
Interpret ambiguous or general questions (e.g., "What's the outlook?" or "Is it a good buy?") as referring to {stock}.

If the question is clearly unrelated to {stock}, politely respond:
"I can only answer questions based on {stock}."

When answering:
- Be clear, factual, and concise.
- Provide context using fundamentals (P/E, EPS, revenue, growth, margins, guidance, etc.) if relevant.
- Where useful, include both bullish and bearish considerations.
- Avoid speculation outside of publicly available or widely accepted financial knowledge.
- Never provide advice outside of {stock}.

Tone: professional and data-driven, like a seasoned Wall Street equity research analyst.`, "{stock}", stock)
}

func companyID(ticker, companyName string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if name := strings.TrimSpace(companyName); name != "" {
		return fmt.Sprintf("%s (%s)", name, ticker)
	}
	return ticker
}

func analysisPrompt(ticker, companyName string) string {
	return fmt.Sprintf(`You are a seasoned Wall Street equity analyst. Analyze %s in detail, covering:

1) Company Snapshot
- Business overview, segment mix, geo exposure, competitive position.
- Key products/services, notable strategy shifts, M&A, cap allocation.

2) Bull Case (Upside Drivers)
- Specific catalysts, product/market tailwinds, TAM expansion.
- Financial strengths: growth, margins, FCF, balance sheet, operating leverage.
- Why multiple could re-rate; comparable peer context.

3) Bear Case (Downside Risks)
- Execution risks, competitive threats, regulatory/macro headwinds.
- Financial vulnerabilities: debt, dilution, margin compression, churn.

4) Warning Signs to Watch
- KPI deterioration, cohort trends, inventory/DSO, guidance "sandbagging".
- Insider selling, unusual accounting, litigation, governance flags.

5) Earnings Review (Last 5 Reports)
For each of the last five quarters:
- Revenue & EPS vs. consensus (beat/miss), margin commentary.
- Notable drivers (pricing, volume, mix), one-offs, FX.
- Management tone (paraphrase).
- Stock reaction post-print (if notable).

6) Guidance & Outlook
- Most recent guidance and any changes (raised / lowered / reaffirmed).
- Alignment vs. consensus; near-term (next quarter) and 12-24 month view.

7) Final Assessment
- Balanced conclusion integrating bull/bear probabilities.
- Short-term (1-3 months), medium-term (6-12 months), long-term (3+ years).
- What would change your view.
- Actionable takeaways in 3-5 bullets.

Respond with one JSON object using exactly these keys:
companyId, companySnapshot, bullCase[], bearCase[], warningSigns[],
earningsLast5[] {period, revenue{actual, consensus, beatOrMiss}, eps{actual, consensus, beatOrMiss}, marginsCommentary, keyDrivers[], notableOneOffs[], fxImpact, managementTone, stockReaction},
guidanceOutlook {latestGuidance, changes, vsConsensus, nearTermView, midTermView},
finalAssessment {summary, shortTerm, mediumTerm, longTerm, actionables[], wouldChangeView[]}.
beatOrMiss is one of beat, miss, inline. changes is one of raised, lowered, reaffirmed, mixed, unknown.
Use professional tone. Be specific. If data is unavailable, state it briefly and proceed.`, companyID(ticker, companyName))
}
