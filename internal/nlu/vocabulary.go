package nlu

// Pool is the fixed set of surface values an entity can take.
type Pool struct {
	Entity string
	Values []string
}

// Entity names shared by the runtime extractor and the offline generator.
const (
	EntityDashboardType = "dashboard_type"
	EntityIndustry      = "industry"
	EntityRole          = "role"
	EntityLocation      = "location"
	EntityCampaignName  = "campaign_name"
)

// DefaultPools is the entity vocabulary, in declaration order.
var DefaultPools = []Pool{
	{Entity: EntityDashboardType, Values: []string{"main", "marketing", "sales", "financial"}},
	{Entity: EntityIndustry, Values: []string{"SaaS", "e-commerce", "fintech", "healthcare"}},
	{Entity: EntityRole, Values: []string{"CEOs", "CTOs", "VPs of Marketing", "Sales Directors"}},
	{Entity: EntityLocation, Values: []string{"the United States", "Europe", "California", "New York"}},
	{Entity: EntityCampaignName, Values: []string{"Q2 Launch", "Summer Sale", "New Feature Promo"}},
}

// PoolValues returns the values of the named pool in pools.
func PoolValues(pools []Pool, entity string) ([]string, bool) {
	for _, p := range pools {
		if p.Entity == entity {
			return p.Values, true
		}
	}
	return nil, false
}
