package profiles

// FactorCache holds precomputed factor arrays indexed by edge-profile
// id. With a complete cache, resolver and kernels never call back into
// the profile during a query.
type FactorCache struct {
	factors map[string][]Factor
	canStop map[string][]bool
}

// NewFactorCache evaluates every profile against every edge profile of
// the table once.
func NewFactorCache(table *EdgeProfileTable, profileList ...Profile) *FactorCache {
	c := &FactorCache{
		factors: make(map[string][]Factor, len(profileList)),
		canStop: make(map[string][]bool, len(profileList)),
	}
	for _, p := range profileList {
		factors := make([]Factor, table.Count())
		canStop := make([]bool, table.Count())
		for id := 0; id < table.Count(); id++ {
			factors[id] = p.Factor(uint16(id))
			canStop[id] = p.CanStopOn(uint16(id))
		}
		c.factors[p.Name()] = factors
		c.canStop[p.Name()] = canStop
	}
	return c
}

func (c *FactorCache) Factors(profileName string) ([]Factor, bool) {
	f, ok := c.factors[profileName]
	return f, ok
}

func (c *FactorCache) CanStop(profileName string) ([]bool, bool) {
	s, ok := c.canStop[profileName]
	return s, ok
}

// FactorsFor returns the factor array for a profile, computing it on
// the fly when the profile was not cached.
func (c *FactorCache) FactorsFor(table *EdgeProfileTable, p Profile) []Factor {
	if c != nil {
		if f, ok := c.Factors(p.Name()); ok && len(f) == table.Count() {
			return f
		}
	}
	factors := make([]Factor, table.Count())
	for id := 0; id < table.Count(); id++ {
		factors[id] = p.Factor(uint16(id))
	}
	return factors
}
