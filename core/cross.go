package core

// BidAskReverseType wraps a source quote together with the orientation the
// cross engine needs it in: Direct uses the quote as stored, Reversed uses
// its mirror image (see BidAsk.Reverse).
type BidAskReverseType struct {
	Reversed bool
	Source   BidAsk
}

// GetBidAsk returns the quote in the effective orientation for this leg.
func (r BidAskReverseType) GetBidAsk() BidAsk {
	if r.Reversed {
		return r.Source.Reverse()
	}
	return r.Source
}

// GetSource returns the underlying source quote regardless of orientation.
func (r BidAskReverseType) GetSource() BidAsk {
	return r.Source
}

// CrossPairType computes a synthesised (bid, ask) from its two legs and
// knows how to absorb a fresh source tick into whichever leg it matches.
type CrossPairType interface {
	CalculateCross() (bid, ask float64)
	HandlePrice(price BidAsk)
}

// SameSideCross synthesises a cross from two legs that share the pivot
// currency on the same side of both source pairs.
type SameSideCross struct {
	Left  BidAsk
	Right BidAsk
}

// CalculateCross implements CrossPairType.
func (s *SameSideCross) CalculateCross() (float64, float64) {
	return s.Left.Bid / s.Right.Ask, s.Left.Ask / s.Right.Bid
}

// HandlePrice implements CrossPairType: updates whichever leg exactly
// matches the incoming pair's (base, quote).
func (s *SameSideCross) HandlePrice(price BidAsk) {
	if s.Left.Base == price.Base && s.Left.Quote == price.Quote {
		s.Left = price
	}
	if s.Right.Base == price.Base && s.Right.Quote == price.Quote {
		s.Right = price
	}
}

// DiffSideCross synthesises a cross from two legs that need independent
// orientation before multiplying.
type DiffSideCross struct {
	Left  BidAskReverseType
	Right BidAskReverseType
}

// CalculateCross implements CrossPairType.
func (d *DiffSideCross) CalculateCross() (float64, float64) {
	left := d.Left.GetBidAsk()
	right := d.Right.GetBidAsk()
	return left.Bid * right.Bid, left.Ask * right.Ask
}

// HandlePrice implements CrossPairType: updates whichever leg's source
// exactly matches the incoming pair's (base, quote).
func (d *DiffSideCross) HandlePrice(price BidAsk) {
	if src := d.Left.GetSource(); src.Base == price.Base && src.Quote == price.Quote {
		d.Left.Source = price
	}
	if src := d.Right.GetSource(); src.Base == price.Base && src.Quote == price.Quote {
		d.Right.Source = price
	}
}

// CrossInstrument is a synthesised pair derived from two source instruments.
type CrossInstrument struct {
	ID     string
	Base   string
	Quote  string
	Prices CrossPairType
}

// HandlePrice forwards a fresh tick to the underlying cross pair topology.
func (c *CrossInstrument) HandlePrice(price BidAsk) {
	c.Prices.HandlePrice(price)
}

// GetBidAsk computes the current synthesised quote for this cross.
func (c *CrossInstrument) GetBidAsk() BidAsk {
	bid, ask := c.Prices.CalculateCross()
	return BidAsk{
		AssetPair: c.Base + c.Quote,
		Bid:       bid,
		Ask:       ask,
		Base:      c.Base,
		Quote:     c.Quote,
	}
}
