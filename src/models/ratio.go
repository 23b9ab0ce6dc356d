package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ratio is a percentage that may be undefined (zero denominator). The JSON
// boundary renders the undefined case as the sentinel string "0.00"; a
// defined ratio is a plain number rounded to two decimals.
type Ratio struct {
	Defined bool
	Value   float64
}

// NewRatio computes num/den*100, undefined when den is zero.
func NewRatio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Defined: true, Value: num / den * 100}
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return json.Marshal("0.00")
	}
	return []byte(strconv.FormatFloat(r.Value, 'f', 2, 64)), nil
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		*r = Ratio{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid ratio %q: %w", s, err)
	}
	*r = Ratio{Defined: true, Value: v}
	return nil
}

// Percent is an effective-rate percentage rendered as a "NN.NN%" string,
// "0.00%" when undefined.
type Percent struct {
	Defined bool
	Value   float64
}

// NewPercent computes num/den*100, undefined when den is not positive.
func NewPercent(num, den float64) Percent {
	if den <= 0 {
		return Percent{}
	}
	return Percent{Defined: true, Value: num / den * 100}
}

func (p Percent) String() string {
	if !p.Defined {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", p.Value)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid percent %q: %w", s, err)
	}
	if v == 0 {
		*p = Percent{}
		return nil
	}
	*p = Percent{Defined: true, Value: v}
	return nil
}
