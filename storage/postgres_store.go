package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"busroute-scraper/models"
	"busroute-scraper/utils"
)

const insertBatchSize = 50

var insertColumns = []string{
	"route_name", "route_link", "bus_name", "bus_type", "departing_time", "duration",
	"reaching_time", "star_rating_out_of_5", "price_inr", "total_seats", "window_seats",
	"departing_date", "reaching_date",
}

// PostgresStore persists normalized bus routes to PostgreSQL and answers the
// search queries.
type PostgresStore struct {
	db     *sql.DB
	table  string
	logger *utils.Logger
}

// OpenPostgres opens a connection pool, pings it with retries and returns a
// ready-to-use store over table.
func OpenPostgres(ctx context.Context, dsn, table string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return NewPostgresStore(db, table, logger), nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(db *sql.DB, table string, logger *utils.Logger) *PostgresStore {
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table), logger: logger}
}

// CreateSchema creates the routes table when it does not exist yet.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			route_name           TEXT,
			route_link           TEXT,
			bus_name             TEXT,
			bus_type             TEXT,
			departing_time       TIME,
			duration             TEXT,
			reaching_time        TIME,
			star_rating_out_of_5 NUMERIC(2,1),
			price_inr            NUMERIC(10,2),
			total_seats          INTEGER,
			window_seats         INTEGER,
			departing_date       DATE,
			reaching_date        DATE
		)`, s.table))
	if err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	s.logger.Info("[postgres] Table %s ready", s.table)
	return nil
}

// AppendRows inserts routes in batches inside one transaction. Either every
// row is stored or none is.
func (s *PostgresStore) AppendRows(ctx context.Context, routes []*models.BusRoute) error {
	if len(routes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < len(routes); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(routes) {
			end = len(routes)
		}
		if err := s.insertBatch(ctx, tx, routes[i:end]); err != nil {
			return fmt.Errorf("postgres: insert rows %d-%d: %w", i, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.logger.Info("[postgres] Appended %d rows to %s", len(routes), s.table)
	return nil
}

func (s *PostgresStore) insertBatch(ctx context.Context, tx *sql.Tx, batch []*models.BusRoute) error {
	n := len(insertColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*n)

	for idx, r := range batch {
		placeholders := make([]string, n)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", idx*n+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.RouteName, r.RouteLink, r.BusName, r.BusType, r.DepartingTime, r.Duration,
			r.ReachingTime, r.StarRating, r.PriceINR, r.TotalSeats, r.WindowSeats,
			r.DepartingDate, r.ReachingDate)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.table, strings.Join(insertColumns, ", "), strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// Search returns every stored route matching filter.
func (s *PostgresStore) Search(ctx context.Context, filter models.SearchFilter) ([]*models.BusRoute, error) {
	query, args := BuildSearchQuery(s.table, filter)
	s.logger.Debug("[postgres] Search with %d params", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	defer rows.Close()

	var routes []*models.BusRoute
	for rows.Next() {
		r := &models.BusRoute{}
		var (
			routeLink, busName, busType, duration sql.NullString
			rating, price                         sql.NullFloat64
			seats, window                         sql.NullInt64
			departing                             sql.NullTime
		)
		if err := rows.Scan(
			&r.RouteName, &routeLink, &busName, &busType, &r.DepartingTime, &duration,
			&r.ReachingTime, &rating, &price, &seats, &window,
			&departing, &r.ReachingDate,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.RouteLink = routeLink.String
		r.BusName = busName.String
		r.BusType = busType.String
		r.Duration = duration.String
		r.StarRating = rating.Float64
		r.PriceINR = price.Float64
		r.TotalSeats = int(seats.Int64)
		r.WindowSeats = int(window.Int64)
		r.DepartingDate = departing.Time
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// Agencies lists the distinct agency prefixes of stored route names.
func (s *PostgresStore) Agencies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT split_part(route_name, '_', 1) AS agency
		FROM %s
		WHERE route_name IS NOT NULL
		ORDER BY agency`, s.table))
	if err != nil {
		return nil, fmt.Errorf("postgres: agencies: %w", err)
	}
	defer rows.Close()

	var agencies []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("postgres: scan agency: %w", err)
		}
		if a = strings.TrimSpace(a); a != "" {
			agencies = append(agencies, a)
		}
	}
	return agencies, rows.Err()
}

// RoutesForAgency lists the stored route names of one agency, each paired
// with its display name.
func (s *PostgresStore) RoutesForAgency(ctx context.Context, agency string) ([]models.RouteChoice, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT route_name
		FROM %s
		WHERE route_name LIKE $1 ESCAPE '\'
		ORDER BY route_name`, s.table), likePrefix(agency))
	if err != nil {
		return nil, fmt.Errorf("postgres: routes for %s: %w", agency, err)
	}
	defer rows.Close()

	var choices []models.RouteChoice
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres: scan route: %w", err)
		}
		choices = append(choices, models.RouteChoice{
			Display:   models.StripAgency(name, agency),
			RouteName: name,
		})
	}
	return choices, rows.Err()
}

// Bounds reads the largest stored seat count and price, the price rounded up
// to the input step. Missing maxima fall back to models.DefaultBounds; on
// error the defaults are returned with it.
func (s *PostgresStore) Bounds(ctx context.Context) (models.Bounds, error) {
	var seats sql.NullInt64
	var price sql.NullFloat64

	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT MAX(total_seats), MAX(price_inr) FROM %s", s.table)).Scan(&seats, &price)
	if err != nil {
		return models.DefaultBounds, fmt.Errorf("postgres: bounds: %w", err)
	}

	b := models.DefaultBounds
	if seats.Valid && seats.Int64 > 0 {
		b.MaxSeats = int(seats.Int64)
	}
	if price.Valid && price.Float64 > 0 {
		b.MaxPrice = models.PriceCeiling(price.Float64)
	}
	return b, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
