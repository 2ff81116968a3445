package config

import "time"

type Barcode struct {
	OpenFoodFactsURL string        `env:"BARCODE_OPENFOODFACTS_URL" envDefault:"https://world.openfoodfacts.org"`
	UPCItemDBURL     string        `env:"BARCODE_UPCITEMDB_URL" envDefault:"https://api.upcitemdb.com"`
	Timeout          time.Duration `env:"BARCODE_TIMEOUT" envDefault:"10s"`
	CacheTTL         time.Duration `env:"BARCODE_CACHE_TTL" envDefault:"720h"`
}
