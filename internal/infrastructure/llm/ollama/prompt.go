package ollama

import (
	"fmt"
	"strings"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

func buildAnswerPrompt(question string, facts []domain.Laureate, sources []domain.Citation) string {
	var b strings.Builder

	b.WriteString(`You answer questions about Nobel Literature laureates.
Use only the award records and speech passages below.
Cite passages by their [n] marker. If the material is insufficient, say so directly.

Question:
`)
	b.WriteString(question)
	b.WriteString("\n")

	if len(facts) > 0 {
		b.WriteString("\nAward records:\n")
		for _, fact := range facts {
			fmt.Fprintf(&b, "- %s, Nobel Prize in Literature %d", fact.FullName, fact.YearAwarded)
			if fact.Country != "" {
				fmt.Fprintf(&b, ", %s", fact.Country)
			}
			b.WriteString("\n")
		}
	}

	if len(sources) > 0 {
		b.WriteString("\nSpeech passages:\n")
		for idx, source := range sources {
			fmt.Fprintf(&b, "[%d] %s (%d, %s) score=%.3f\n%s\n\n",
				idx+1,
				source.Laureate,
				source.YearAwarded,
				source.SourceType,
				source.Score,
				source.Text,
			)
		}
	}

	return b.String()
}
