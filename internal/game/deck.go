package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Deck is the policy deck: an ordered draw pile (top first) and a discard
// pile. It is a value; every operation returns a new Deck.
type Deck struct {
	Pile      []Card
	Discarded []Card
}

// NewDeck builds a shuffled deck of blue and red cards.
func NewDeck(blue, red int, rng *rand.Rand) Deck {
	pile := make([]Card, 0, blue+red)
	for range blue {
		pile = append(pile, Blue)
	}
	for range red {
		pile = append(pile, Red)
	}
	rng.Shuffle(len(pile), func(i, j int) {
		pile[i], pile[j] = pile[j], pile[i]
	})
	return Deck{Pile: pile}
}

// Draw removes the top n cards. When the draw pile is short, the discard
// pile is shuffled with rng and placed beneath the remaining cards first;
// reshuffled reports whether that happened.
func (d Deck) Draw(n int, rng *rand.Rand) (next Deck, drawn []Card, reshuffled bool, err error) {
	if n < 0 || n > len(d.Pile)+len(d.Discarded) {
		return d, nil, false, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, len(d.Pile)+len(d.Discarded))
	}
	pile := slices.Clone(d.Pile)
	discarded := slices.Clone(d.Discarded)
	if len(pile) < n {
		rng.Shuffle(len(discarded), func(i, j int) {
			discarded[i], discarded[j] = discarded[j], discarded[i]
		})
		pile = append(pile, discarded...)
		discarded = nil
		reshuffled = true
	}
	drawn = slices.Clone(pile[:n])
	return Deck{Pile: pile[n:], Discarded: discarded}, drawn, reshuffled, nil
}

// Discard appends cards to the discard pile.
func (d Deck) Discard(cards ...Card) Deck {
	discarded := make([]Card, 0, len(d.Discarded)+len(cards))
	discarded = append(discarded, d.Discarded...)
	discarded = append(discarded, cards...)
	return Deck{Pile: slices.Clone(d.Pile), Discarded: discarded}
}

// Peek returns up to n cards from the top without removing them.
func (d Deck) Peek(n int) []Card {
	n = min(n, len(d.Pile))
	return slices.Clone(d.Pile[:n])
}

// Len returns the size of the draw pile.
func (d Deck) Len() int {
	return len(d.Pile)
}

// Count returns how many cards of color c are in the draw and discard piles.
func (d Deck) Count(c Card) int {
	return countCards(d.Pile, c) + countCards(d.Discarded, c)
}

func (d Deck) clone() Deck {
	return Deck{Pile: slices.Clone(d.Pile), Discarded: slices.Clone(d.Discarded)}
}

func countCards(cards []Card, c Card) int {
	n := 0
	for _, card := range cards {
		if card == c {
			n++
		}
	}
	return n
}
