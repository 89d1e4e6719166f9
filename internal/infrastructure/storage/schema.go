package storage

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pricing (
		pricing_id   VARCHAR(255) PRIMARY KEY,
		channel      VARCHAR(255) NOT NULL,
		observed_at  TIMESTAMPTZ  NOT NULL,
		product_asin VARCHAR(255) NOT NULL,
		product_sku  VARCHAR(255),
		zip          VARCHAR(255),
		seller_name  VARCHAR(255),
		price        NUMERIC(10, 2),
		place        VARCHAR(255),
		low_stock    VARCHAR(255),
		action       VARCHAR(255)
	)`,
	`CREATE INDEX IF NOT EXISTS pricing_product_time_idx ON pricing (product_asin, observed_at)`,
}
