package lexicon

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Polarity is the sentiment label of a term or sentence.
type Polarity int

const (
	Negative Polarity = -1
	Neutral  Polarity = 0
	Positive Polarity = 1
)

var polarityNames = map[Polarity]string{
	Negative: "Neg",
	Neutral:  "Neut",
	Positive: "Pos",
}

var polarityFromName = map[string]Polarity{
	"Neg":  Negative,
	"Neut": Neutral,
	"Pos":  Positive,
}

// String returns the label written to results: "Pos", "Neg" or "Neut".
func (p Polarity) String() string {
	if name, ok := polarityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Polarity(%d)", int(p))
}

// ParsePolarity parses an exact label after trimming surrounding space.
func ParsePolarity(s string) (Polarity, bool) {
	p, ok := polarityFromName[strings.TrimSpace(s)]
	return p, ok
}

// MarshalJSON encodes the polarity as its label.
func (p Polarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a label into a Polarity.
func (p *Polarity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := ParsePolarity(s)
	if !ok {
		return fmt.Errorf("lexicon: unknown polarity: %q", s)
	}
	*p = v
	return nil
}
