package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

type ClientStub struct {
	Rates map[string]map[string]decimal.Decimal
	Err   error
	Calls int
}

func NewClientStub() *ClientStub {
	return &ClientStub{Rates: map[string]map[string]decimal.Decimal{}}
}

// SetRate registers a rate and its inverse.
func (s *ClientStub) SetRate(from, to string, rate decimal.Decimal) {
	if s.Rates[from] == nil {
		s.Rates[from] = map[string]decimal.Decimal{}
	}
	if s.Rates[to] == nil {
		s.Rates[to] = map[string]decimal.Decimal{}
	}
	s.Rates[from][to] = rate
	s.Rates[to][from] = decimal.NewFromInt(1).DivRound(rate, 6)
}

func (s *ClientStub) Latest(ctx context.Context, base string) (Rates, error) {
	s.Calls++
	if s.Err != nil {
		return Rates{}, s.Err
	}
	return Rates{Base: base, Rates: s.Rates[base]}, nil
}
