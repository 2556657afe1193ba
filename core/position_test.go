package core

import "testing"

func f64(v float64) *float64 { return &v }

func TestActivePositionSLTakesPriorityOverTP(t *testing.T) {
	p := &ActivePosition{
		PositionCommon: PositionCommon{Side: Buy, SLPrice: f64(1.0900), TPPrice: f64(1.0800)},
		ActivePrice:    1.0850, // SL 1.0900 >= 1.0850 and TP 1.0800 <= 1.0850: both fire
	}

	if !p.IsSLTriggered() || !p.IsTPTriggered() {
		t.Fatalf("expected both SL and TP to fire for this setup")
	}
	reason, triggered := p.GetCloseReason()
	if !triggered {
		t.Fatalf("expected a close reason to trigger")
	}
	if reason != ClosureSL {
		t.Fatalf("expected SL to take priority, got %s", reason)
	}
}

func TestActivePositionTPOnly(t *testing.T) {
	p := &ActivePosition{
		PositionCommon: PositionCommon{Side: Buy, TPPrice: f64(1.0800)},
		ActivePrice:    1.0950,
	}

	reason, triggered := p.GetCloseReason()
	if !triggered || reason != ClosureTP {
		t.Fatalf("expected TP to trigger, got reason=%s triggered=%v", reason, triggered)
	}
}

func TestActivePositionNoTrigger(t *testing.T) {
	p := &ActivePosition{
		PositionCommon: PositionCommon{Side: Buy, SLPrice: f64(1.0000), TPPrice: f64(1.2000)},
		ActivePrice:    1.1000,
	}
	if _, triggered := p.GetCloseReason(); triggered {
		t.Fatalf("expected no trigger")
	}
}

func TestPendingPositionTriggers(t *testing.T) {
	cases := []struct {
		name      string
		orderType PendingOrderType
		desired   float64
		open      float64
		want      bool
	}{
		{"buy stop fires at or above", BuyStop, 1.1000, 1.1000, true},
		{"buy stop does not fire below", BuyStop, 1.1000, 1.0999, false},
		{"buy limit fires at or below", BuyLimit, 1.1000, 1.1000, true},
		{"sell stop fires at or above (preserved inversion)", SellStop, 1.1000, 1.1000, true},
		{"sell limit fires at or below", SellLimit, 1.1000, 1.0999, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &PendingPosition{OrderType: c.orderType, DesiredPrice: c.desired}
			if got := p.IsReadyToExecute(c.open); got != c.want {
				t.Errorf("IsReadyToExecute(%v) = %v, want %v", c.open, got, c.want)
			}
		})
	}
}

func TestPendingPositionOrderSide(t *testing.T) {
	if (&PendingPosition{OrderType: BuyStop}).OrderSide() != Buy {
		t.Errorf("BuyStop should resolve to Buy")
	}
	if (&PendingPosition{OrderType: SellLimit}).OrderSide() != Sell {
		t.Errorf("SellLimit should resolve to Sell")
	}
}
