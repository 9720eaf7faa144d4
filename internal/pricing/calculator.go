// Package pricing computes landed cost and profitability for sourced
// products. All monetary results are rounded half-up to cents at each step so
// stored intermediates always agree with what a spreadsheet user would see.
package pricing

import "math"

const (
	// defaultWeightLB substitutes for missing or non-positive item weight.
	defaultWeightLB = 0.5
	// defaultInboundRatePerLB applies when the supplier has no negotiated rate.
	defaultInboundRatePerLB = 0.35
)

// Inputs gathers everything the calculator needs for one product. Pointer
// fields are optional; nil means unknown and triggers the documented default.
type Inputs struct {
	BuyCost          float64
	SellPrice        float64
	FeesTotal        float64
	WeightLB         *float64
	InboundRatePerLB *float64
	ShipsDirect      bool
	PrepCostOverride *float64
	DefaultPrepCost  float64
}

// Financials is the computed result set, every field rounded to cents.
type Financials struct {
	InboundShipping float64
	PrepCost        float64
	LandedCost      float64
	NetProfit       float64
	ROI             float64
}

// round2 rounds half-up to two decimals. math.Round rounds half away from
// zero, which matches half-up for the non-negative money flowing through here.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// InboundShipping estimates per-unit freight into the warehouse. Direct-ship
// suppliers cost nothing; otherwise weight times rate, with 0.5 lb and
// $0.35/lb standing in for missing inputs.
func InboundShipping(weightLB *float64, ratePerLB float64, shipsDirect bool, supplierRate *float64) float64 {
	if shipsDirect {
		return 0
	}
	weight := defaultWeightLB
	if weightLB != nil && *weightLB > 0 {
		weight = *weightLB
	}
	rate := ratePerLB
	if supplierRate != nil && *supplierRate > 0 {
		rate = *supplierRate
	}
	if rate <= 0 {
		rate = defaultInboundRatePerLB
	}
	return round2(weight * rate)
}

// PrepCost picks the per-unit prep charge: product override first, supplier
// default otherwise.
func PrepCost(override *float64, supplierDefault float64) float64 {
	if override != nil && *override >= 0 {
		return round2(*override)
	}
	if supplierDefault < 0 {
		return 0
	}
	return round2(supplierDefault)
}

// LandedCost is the full per-unit cost of getting the item sellable.
func LandedCost(buyCost, inboundShipping, prepCost float64) float64 {
	return round2(buyCost + inboundShipping + prepCost)
}

// NetProfit is sell price minus marketplace fees minus landed cost.
func NetProfit(sellPrice, feesTotal, landedCost float64) float64 {
	return round2(sellPrice - feesTotal - landedCost)
}

// ROI is net profit over landed cost as a percentage. Returns 0 when landed
// cost is not positive rather than dividing by zero.
func ROI(netProfit, landedCost float64) float64 {
	if landedCost <= 0 {
		return 0
	}
	return round2(netProfit / landedCost * 100)
}

// Compute runs the full chain for one product.
func Compute(in Inputs) Financials {
	rate := defaultInboundRatePerLB
	f := Financials{
		InboundShipping: InboundShipping(in.WeightLB, rate, in.ShipsDirect, in.InboundRatePerLB),
		PrepCost:        PrepCost(in.PrepCostOverride, in.DefaultPrepCost),
	}
	f.LandedCost = LandedCost(in.BuyCost, f.InboundShipping, f.PrepCost)
	f.NetProfit = NetProfit(in.SellPrice, in.FeesTotal, f.LandedCost)
	f.ROI = ROI(f.NetProfit, f.LandedCost)
	return f
}
