package pricing

import "strings"

// DefaultPartBaseCost базовая цена детали, не найденной в таблице
const DefaultPartBaseCost = 10000

type partCost struct {
	substring string
	cost      float64
}

// Порядок важен: первое совпадение побеждает
var partBaseCosts = []partCost{
	{"door", 12000},
	{"fender", 10000},
	{"bumper", 8000},
	{"hood", 15000},
	{"trunk", 12000},
	{"quarter panel", 18000},
	{"roof", 20000},
	{"windshield", 10000},
	{"headlight", 5000},
	{"taillight", 4000},
	{"mirror", 3000},
	{"wheel", 6000},
}

// PartBaseCost базовая цена детали для уточнения по ракурсам
func PartBaseCost(partName string) float64 {
	name := strings.ToLower(strings.TrimSpace(partName))
	for _, pc := range partBaseCosts {
		if strings.Contains(name, pc.substring) {
			return pc.cost
		}
	}
	return DefaultPartBaseCost
}
