package conversation

import (
	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/judge"
	"github.com/randalmurphal/bookgraph/pkg/llm"
)

// TurnState flows through the conversation graph. One value belongs to one
// turn; it is serialized into every checkpoint.
type TurnState struct {
	// Messages is the history plus the current user message.
	Messages []llm.Message `json:"messages"`
	Question string        `json:"question"`

	// Draft is the generator's unverified reply.
	Draft string `json:"draft"`

	// Final is set at most once; Finished records that it was.
	Final    string `json:"final,omitempty"`
	Finished bool   `json:"finished"`

	Flags judge.Flags `json:"flags"`

	// Recommend is how many verified books the reply may carry.
	Recommend int `json:"recommend"`

	// Documents accumulate search snippets; never replaced.
	Documents []string `json:"documents,omitempty"`

	RewrittenQuery string `json:"rewritten_query,omitempty"`
	Author         string `json:"author,omitempty"`

	Records  []catalog.Record `json:"records,omitempty"`
	Rejected []string         `json:"rejected,omitempty"`
}

func (s *TurnState) finish(text string) {
	if s.Finished {
		return
	}
	s.Final = text
	s.Finished = true
}
