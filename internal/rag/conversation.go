package rag

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Conversation holds the ordered exchange history of a single session plus
// a parallel list of the sources cited per turn. The orchestrator never
// mutates it; callers append after each successful answer and clear
// explicitly.
//
// Invariant: len(Turns) == len(Sources) at all times. Append is the only
// mutation path that grows the lists, and it grows both together.
type Conversation struct {
	Turns   []Turn   `json:"turns"`
	Sources []string `json:"sources"`
}

// Append records a completed exchange with its sources.
func (c *Conversation) Append(question, answer, sources string) {
	c.Turns = append(c.Turns, Turn{Question: question, Answer: answer})
	c.Sources = append(c.Sources, sources)
}

// Clear resets the conversation to empty.
func (c *Conversation) Clear() {
	c.Turns = nil
	c.Sources = nil
}

// Len returns the number of completed turns.
func (c *Conversation) Len() int {
	return len(c.Turns)
}
