package narrative

import (
	"context"
	"log"

	"profilegate/internal/model"
)

// Resilient tries Primary and falls back to the rule-based sections on any
// error. A nil Primary always uses the rules.
type Resilient struct {
	Primary Generator
}

func (r Resilient) Generate(ctx context.Context, p *model.Profile, m model.Metrics) *model.Narrative {
	if r.Primary != nil {
		n, err := r.Primary.Generate(ctx, p, m)
		if err == nil && n != nil {
			return n
		}
		log.Printf("narrative: %v, using rule-based sections", err)
	}
	return rules(p, m)
}
