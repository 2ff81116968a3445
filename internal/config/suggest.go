package config

type Suggest struct {
	// LowStockThreshold is the quantity at or below which an item is suggested.
	LowStockThreshold int `env:"SUGGEST_LOW_STOCK_THRESHOLD" envDefault:"1"`
	// TargetStock is the level a suggestion replenishes to.
	TargetStock     int  `env:"SUGGEST_TARGET_STOCK" envDefault:"2"`
	IncludeExpiring bool `env:"SUGGEST_INCLUDE_EXPIRING" envDefault:"false"`
	ExpiringDays    int  `env:"SUGGEST_EXPIRING_DAYS" envDefault:"7"`
}
