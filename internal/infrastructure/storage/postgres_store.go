package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

const (
	pricingTable = "pricing"

	// Placeholders written into the observation columns of audit rows.
	notApplicable = "N/A"
	allRegions    = "ALL"
)

var (
	errEmptyRecord  = errors.New("record has neither observation nor audit")
	errMissingPrice = errors.New("row has no price")
	errMissingPlace = errors.New("row has neither place nor action")
)

var pricingColumns = []string{
	"pricing_id", "channel", "observed_at", "product_asin", "product_sku",
	"zip", "seller_name", "price", "place", "low_stock", "action",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists observations and audit rows in the shared pricing table.
type PostgresStore struct {
	db querier
}

var _ ports.ObservationStore = (*PostgresStore)(nil)

// NewPostgresStore wires a pgx pool (or any compatible querier).
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPool parses the DSN, sizes the pool and pings the database.
func OpenPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the pricing table and its lookup index when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Append inserts one row.
func (s *PostgresStore) Append(ctx context.Context, record domain.Record) error {
	query, args, err := buildInsert(record)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert pricing row: %w", err)
	}
	return nil
}

// Read selects rows matching q ordered by time.
func (s *PostgresStore) Read(ctx context.Context, q ports.Query) ([]domain.Record, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pricing rows: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			r                          row
			sku, region, seller, place *string
		)
		if err := rows.Scan(&r.ID, &r.Channel, &r.ObservedAt, &r.ProductID, &sku,
			&region, &seller, &r.Price, &place, &r.LowStock, &r.Action); err != nil {
			return nil, fmt.Errorf("scan pricing row: %w", err)
		}
		r.SKU, r.Region, r.Seller, r.Place = deref(sku), deref(region), deref(seller), deref(place)

		rec, err := r.decode()
		if errors.Is(err, errMissingPrice) || errors.Is(err, errMissingPlace) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode pricing row %s: %w", r.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return records, nil
}

func buildInsert(record domain.Record) (string, []any, error) {
	r, err := encode(record)
	if err != nil {
		return "", nil, err
	}
	query, args, err := psql.Insert(pricingTable).
		Columns(pricingColumns...).
		Values(r.ID, r.Channel, r.ObservedAt, r.ProductID, r.SKU, r.Region, r.Seller,
			sq.Expr("CAST(? AS NUMERIC)", r.Price), r.Place, r.LowStock, r.Action).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return query, args, nil
}

func buildSelect(q ports.Query) (string, []any, error) {
	columns := make([]string, len(pricingColumns))
	copy(columns, pricingColumns)
	for i, c := range columns {
		if c == "price" {
			columns[i] = "price::text"
		}
	}

	builder := psql.Select(columns...).From(pricingTable).OrderBy("observed_at ASC")
	if q.ProductID != "" {
		builder = builder.Where(sq.Eq{"product_asin": q.ProductID})
	}
	if !q.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"observed_at": q.Since})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select: %w", err)
	}
	return query, args, nil
}

// row mirrors the pricing table. Price, low stock and action keep NULL as nil;
// NULL text in the other nullable columns reads as "".
type row struct {
	ID         string
	Channel    string
	ObservedAt time.Time
	ProductID  string
	SKU        string
	Region     string
	Seller     string
	Price      *string
	Place      string
	LowStock   *string
	Action     *string
}

func encode(record domain.Record) (row, error) {
	switch {
	case record.Observation != nil:
		o := record.Observation
		r := row{
			ID:         o.ID,
			Channel:    o.Channel,
			ObservedAt: o.ObservedAt,
			ProductID:  o.ProductID,
			SKU:        o.SKU,
			Region:     o.Region,
			Seller:     o.SellerName,
			Price:      stringPtr(o.Price.StringFixed(2)),
			Place:      strconv.Itoa(o.Rank),
		}
		if o.LowStock != nil {
			v := strconv.Itoa(*o.LowStock)
			r.LowStock = &v
		}
		return r, nil
	case record.Audit != nil:
		a := record.Audit
		na := notApplicable
		action := a.Description
		return row{
			ID:         a.ID,
			Channel:    a.Channel,
			ObservedAt: a.RecordedAt,
			ProductID:  a.ProductID,
			SKU:        notApplicable,
			Region:     allRegions,
			Seller:     notApplicable,
			Price:      stringPtr(a.NewPrice.StringFixed(2)),
			Place:      notApplicable,
			LowStock:   &na,
			Action:     &action,
		}, nil
	default:
		return row{}, errEmptyRecord
	}
}

// decode maps a table row onto the record variant. Rows carrying an action, or a
// non-numeric place, are audit rows. Rows without a price, or without both place and
// action, cannot be classified and are reported as errMissingPrice / errMissingPlace.
func (r row) decode() (domain.Record, error) {
	if r.Price == nil {
		return domain.Record{}, errMissingPrice
	}
	if r.Action == nil && strings.TrimSpace(r.Place) == "" {
		return domain.Record{}, errMissingPlace
	}
	price, err := decimal.NewFromString(*r.Price)
	if err != nil {
		return domain.Record{}, fmt.Errorf("price %q: %w", *r.Price, err)
	}

	rank, rankErr := strconv.Atoi(r.Place)
	if r.Action != nil || rankErr != nil {
		description := ""
		if r.Action != nil {
			description = *r.Action
		}
		return domain.AuditRecordOf(domain.AuditRecord{
			ID:          r.ID,
			Channel:     r.Channel,
			RecordedAt:  r.ObservedAt,
			ProductID:   r.ProductID,
			NewPrice:    price,
			Action:      actionFromDescription(description),
			Description: description,
		}), nil
	}

	obs := domain.Observation{
		ID:         r.ID,
		Channel:    r.Channel,
		ObservedAt: r.ObservedAt,
		ProductID:  r.ProductID,
		SKU:        r.SKU,
		Region:     r.Region,
		SellerName: r.Seller,
		Price:      price,
		Rank:       rank,
	}
	if r.LowStock != nil {
		if qty, err := strconv.Atoi(strings.TrimSpace(*r.LowStock)); err == nil {
			obs.LowStock = &qty
		}
	}
	return domain.ObservationRecord(obs), nil
}

func actionFromDescription(description string) domain.Action {
	switch {
	case strings.HasPrefix(description, string(domain.ActionIncrease)):
		return domain.ActionIncrease
	case strings.HasPrefix(description, string(domain.ActionDecrease)):
		return domain.ActionDecrease
	default:
		return domain.ActionNone
	}
}

func stringPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
