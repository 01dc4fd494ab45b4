// Package model defines the sentiment pipeline shared by training and
// inference: a TF-IDF vectorizer feeding a binary logistic regression.
package model

import "fmt"

// Label is a sentiment class.
type Label int

const (
	Negative Label = 0
	Positive Label = 1
)

func (l Label) String() string {
	switch l {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether l is one of the two known classes.
func (l Label) Valid() bool {
	return l == Negative || l == Positive
}
