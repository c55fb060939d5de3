package pricing

import "digital-surveyor/internal/taxonomy"

// Пороги грубого набора правил
const (
	ReplaceShareThreshold = 0.25
	ReplaceDepthThreshold = 0.6
)

type coarsePrice struct {
	repair  float64
	replace float64
}

// Цены грубого набора правил (USD)
var coarsePrices = map[taxonomy.Part]coarsePrice{
	taxonomy.PartDoor:    {repair: 200, replace: 900},
	taxonomy.PartBumper:  {repair: 180, replace: 600},
	taxonomy.PartFender:  {repair: 180, replace: 500},
	taxonomy.PartHood:    {repair: 300, replace: 1100},
	taxonomy.PartGlass:   {repair: 150, replace: 600},
	taxonomy.PartUnknown: {repair: 100, replace: 350},
}

// CoarseRefinementShare доля цены замены, принятая за базу уточнения:
// замена по лестнице уточнения (×2) совпадает с ценой замены детали
const CoarseRefinementShare = 0.5

// Coarse решает только "ремонт или замена" по площади и глубине
type Coarse struct{}

func (Coarse) Name() string     { return StrategyCoarse }
func (Coarse) Currency() string { return "USD" }

// RefinementBaseCost половина цены замены нормализованной детали (USD)
func (Coarse) RefinementBaseCost(partLabel string) float64 {
	price, ok := coarsePrices[taxonomy.NormalizePart(partLabel)]
	if !ok {
		price = coarsePrices[taxonomy.PartUnknown]
	}
	return price.replace * CoarseRefinementShare
}

// Decide выбирает замену для крупных, глубоких повреждений и разбитого стекла
func (Coarse) Decide(in Input, multiplier float64) Decision {
	price, ok := coarsePrices[in.Part]
	if !ok {
		price = coarsePrices[taxonomy.PartUnknown]
	}

	if in.PartShare > ReplaceShareThreshold || in.DepthScore > ReplaceDepthThreshold || in.Kind.IsGlass() {
		return applyMultiplier(taxonomy.ActionReplace, price.replace, multiplier)
	}
	return applyMultiplier(taxonomy.ActionRepair, price.repair, multiplier)
}
