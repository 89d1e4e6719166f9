package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

func TestBuildSelect(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := buildSelect(ports.Query{ProductID: "B0ASIN", Since: since})
	if err != nil {
		t.Fatalf("buildSelect returned error: %v", err)
	}

	if !strings.Contains(query, "FROM pricing") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "price::text") {
		t.Fatalf("expected price cast to text: %s", query)
	}
	if !strings.Contains(query, "product_asin = $1") || !strings.Contains(query, "observed_at >= $2") {
		t.Fatalf("unexpected filters: %s", query)
	}
	if len(args) != 2 || args[0] != "B0ASIN" || args[1] != since {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildSelectUnbounded(t *testing.T) {
	t.Parallel()

	query, args, err := buildSelect(ports.Query{})
	if err != nil {
		t.Fatalf("buildSelect returned error: %v", err)
	}
	if strings.Contains(query, "WHERE") {
		t.Fatalf("expected no WHERE clause: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildInsertAudit(t *testing.T) {
	t.Parallel()

	query, args, err := buildInsert(domain.AuditRecordOf(domain.AuditRecord{
		ID:          "audit-1",
		Channel:     domain.DefaultChannel,
		RecordedAt:  time.Now(),
		ProductID:   "B0ASIN",
		NewPrice:    decimal.RequireFromString("9.5"),
		Action:      domain.ActionIncrease,
		Description: "increase price by 0.5",
	}))
	if err != nil {
		t.Fatalf("buildInsert returned error: %v", err)
	}

	if !strings.HasPrefix(query, "INSERT INTO pricing") || !strings.Contains(query, "CAST($8 AS NUMERIC)") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != len(pricingColumns) {
		t.Fatalf("expected %d args, got %d", len(pricingColumns), len(args))
	}
	if args[5] != allRegions || args[6] != notApplicable || args[8] != notApplicable {
		t.Fatalf("audit placeholders not written: %v", args)
	}
	if p, ok := args[7].(*string); !ok || *p != "9.50" {
		t.Fatalf("unexpected price arg: %#v", args[7])
	}
}

func TestBuildInsertRejectsEmptyRecord(t *testing.T) {
	t.Parallel()

	if _, _, err := buildInsert(domain.Record{}); !errors.Is(err, errEmptyRecord) {
		t.Fatalf("expected errEmptyRecord, got %v", err)
	}
}

func TestDecodeAuditRowNeverBuyBox(t *testing.T) {
	t.Parallel()

	r, err := encode(domain.AuditRecordOf(domain.AuditRecord{
		ID:          "audit-2",
		ProductID:   "B0ASIN",
		NewPrice:    decimal.RequireFromString("7"),
		Description: "decrease price by 0.5",
	}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	rec, err := r.decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Observation != nil || rec.Audit == nil {
		t.Fatalf("expected audit variant, got %+v", rec)
	}
	if rec.Audit.Action != domain.ActionDecrease {
		t.Fatalf("unexpected action: %s", rec.Audit.Action)
	}
}

func TestDecodeObservationLowStock(t *testing.T) {
	t.Parallel()

	place, price, stock := "1", "12.90", "3"
	rec, err := row{ID: "o-1", ProductID: "B0ASIN", Place: place, Price: &price, LowStock: &stock}.decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Observation == nil || !rec.Observation.IsBuyBox() {
		t.Fatalf("expected rank-1 observation, got %+v", rec)
	}
	if !rec.Observation.HasLowStock() || *rec.Observation.LowStock != 3 {
		t.Fatalf("unexpected low stock: %v", rec.Observation.LowStock)
	}

	null := "NULL"
	rec, err = row{ID: "o-2", Place: "2", Price: &price, LowStock: &null}.decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Observation.LowStock != nil {
		t.Fatalf("expected nil low stock for NULL marker")
	}
}

func TestPostgresStoreRead(t *testing.T) {
	t.Parallel()

	price := "10.00"
	one := "1"
	action := "increase price by 0.5"
	db := &fakeQuerier{rows: []row{
		{ID: "o-1", ProductID: "B0ASIN", Place: one, Price: &price, Seller: domain.DefaultSellerName},
		{ID: "o-2", ProductID: "B0ASIN", Place: "2"},
		{ID: "a-1", ProductID: "B0ASIN", Place: notApplicable, Price: &price, Action: &action},
	}}

	store := NewPostgresStore(db)
	records, err := store.Read(context.Background(), ports.Query{ProductID: "B0ASIN"})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (priceless row skipped), got %d", len(records))
	}
	if records[0].Observation == nil || records[1].Audit == nil {
		t.Fatalf("unexpected variants: %+v", records)
	}
	if !strings.Contains(db.lastSQL, "product_asin = $1") {
		t.Fatalf("unexpected sql: %s", db.lastSQL)
	}
}

func TestPostgresStoreReadToleratesNullTextColumns(t *testing.T) {
	t.Parallel()

	price := "9.90"
	db := &fakeQuerier{rows: []row{
		{ID: "o-1", ProductID: "B0ASIN", Place: "1", Price: &price, Seller: domain.DefaultSellerName},
		{ID: "o-2", ProductID: "B0ASIN", Place: "1", Price: &price},
		{ID: "o-3", ProductID: "B0ASIN", Price: &price},
	}}

	records, err := NewPostgresStore(db).Read(context.Background(), ports.Query{ProductID: "B0ASIN"})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (unclassifiable row skipped), got %d", len(records))
	}
	obs := records[1].Observation
	if obs == nil || obs.Region != "" || obs.SellerName != "" || obs.SKU != "" || !obs.IsBuyBox() {
		t.Fatalf("expected rank-1 observation with empty text fields, got %+v", records[1])
	}
}

func TestPostgresStoreAppendError(t *testing.T) {
	t.Parallel()

	store := NewPostgresStore(&fakeQuerier{execErr: errors.New("connection reset")})
	err := store.Append(context.Background(), domain.ObservationRecord(domain.Observation{ID: "o-1", Rank: 1}))
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

type fakeQuerier struct {
	rows    []row
	execErr error
	lastSQL string
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.lastSQL = sql
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

type fakeRows struct {
	rows []row
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	cur := r.rows[r.idx]
	*dest[0].(*string) = cur.ID
	*dest[1].(*string) = cur.Channel
	*dest[2].(*time.Time) = cur.ObservedAt
	*dest[3].(*string) = cur.ProductID
	*dest[4].(**string) = nullable(cur.SKU)
	*dest[5].(**string) = nullable(cur.Region)
	*dest[6].(**string) = nullable(cur.Seller)
	*dest[7].(**string) = cur.Price
	*dest[8].(**string) = nullable(cur.Place)
	*dest[9].(**string) = cur.LowStock
	*dest[10].(**string) = cur.Action
	return nil
}

// nullable maps "" to a SQL NULL as pgx would scan it.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
