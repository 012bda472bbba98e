package model

// Card is a single question/answer pair with a position within its deck.
//
// Order values within a deck are always a contiguous 0-based sequence. This
// isn't enforced by a uniqueness constraint — it holds because the only
// mutation path is a full replace of a deck's card set, which assigns order
// from input position. Cards are never addressed individually by clients.
type Card struct {
	ID       string `json:"id"`
	DeckID   string `json:"deckId"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Order    int    `json:"order"`
}
