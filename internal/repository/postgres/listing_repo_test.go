package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/grader-market/internal/model"
	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var listingCols = []string{"id", "kind", "title", "brand", "model", "price", "year", "part_number", "images",
	"description", "specs", "features", "safety", "is_new", "is_sold", "listed_at", "stock_country"}

func TestListingRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)

	id1 := uuid.Must(uuid.NewV4())
	id2 := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, kind, title, brand, model, price, year, part_number, images, description, specs, features, safety, is_new, is_sold, listed_at, stock_country FROM listings ORDER BY seq ASC`).
		WillReturnRows(pgxmock.NewRows(listingCols).
			AddRow(id1, "grader", "Cat 140M", "Cat", "140M", int64(120000), 2015, "", []string{"/images/a.jpg"},
				"Low hours", []byte(`{"engine":"C9.3"}`), []string{"AC cab"}, []string{"ROPS"}, false, false, ts, "Kenya").
			AddRow(id2, "part", "Cutting edge", "Cat", "Blades", int64(300), 0, "7D-1577", []string{"/images/b.jpg"},
				"", []byte(nil), []string{}, []string{}, true, true, ts, "EU"))

	out, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, model.KindGrader, out[0].Kind)
	require.Equal(t, model.CountryKenya, out[0].StockCountry)
	require.Equal(t, "C9.3", out[0].Specs["engine"])
	require.Equal(t, "7D-1577", out[1].PartNumber)
	require.Nil(t, out[1].Specs)
	require.Equal(t, model.StatusSold, out[1].Status())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_List_BadSpecs(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)

	mock.ExpectQuery(`SELECT id, kind, title`).
		WillReturnRows(pgxmock.NewRows(listingCols).
			AddRow(uuid.Must(uuid.NewV4()), "grader", "t", "b", "m", int64(1), 2000, "", []string{"x"},
				"", []byte(`{not json`), []string{}, []string{}, false, false, time.Now(), "EU"))

	_, err := r.List(context.Background())
	require.Error(t, err)
}

func TestListingRepo_List_QueryErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)

	mock.ExpectQuery(`SELECT id, kind, title`).WillReturnError(errors.New("q-fail"))
	_, err := r.List(context.Background())
	require.Error(t, err)
}

func TestListingRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)

	l := model.Listing{
		ID:           uuid.Must(uuid.NewV4()),
		Kind:         model.KindGrader,
		Title:        "Komatsu GD655",
		Brand:        "Komatsu",
		Model:        "GD655",
		Price:        95000,
		Year:         2012,
		Images:       []string{"/images/k.jpg"},
		Specs:        map[string]string{"blade": "3.7m"},
		ListedAt:     time.Now().UTC(),
		StockCountry: model.CountryUS,
	}

	mock.ExpectExec(`INSERT INTO listings \(id, kind, title`).
		WithArgs(l.ID, "grader", l.Title, l.Brand, l.Model, l.Price, l.Year, "", l.Images, "",
			[]byte(`{"blade":"3.7m"}`), []string{}, []string{}, false, false, l.ListedAt, "US").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Upsert(context.Background(), l))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_InsertionOrder(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)

	// a listing backdated by an admin still comes back where it was added
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(3, 0, 0)
	first, second := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`ORDER BY seq ASC`).
		WillReturnRows(pgxmock.NewRows(listingCols).
			AddRow(first, "grader", "first", "Cat", "140M", int64(1), 2019, "", []string{"x"},
				"", []byte(nil), []string{}, []string{}, false, false, newer, "EU").
			AddRow(second, "grader", "second", "Cat", "12K", int64(1), 2010, "", []string{"x"},
				"", []byte(nil), []string{}, []string{}, false, false, older, "EU"))

	out, err := r.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{first, second}, []uuid.UUID{out[0].ID, out[1].ID})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_UpsertKeepsSeq(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)

	mock.ExpectExec(`INSERT INTO listings \(id, kind, title, brand, model, price, year, part_number, images, description, specs, features, safety, is_new, is_sold, listed_at, stock_country\) VALUES`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Upsert(context.Background(), model.Listing{ID: uuid.Must(uuid.NewV4())}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewListingRepo(db)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM listings WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, r.Delete(context.Background(), id))

	mock.ExpectExec(`DELETE FROM listings WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(errors.New("del-fail"))
	require.Error(t, r.Delete(context.Background(), id))
}
