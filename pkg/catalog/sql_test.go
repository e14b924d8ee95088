package catalog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var appColumns = []string{
	"id", "name", "installer_source_url", "installer_type", "silent_arguments",
	"winget_id", "official_download_url", "official_website_url",
}

func TestSQLLookup_GetItemsByIDs_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	lookup := NewSQLLookup(db, DriverPostgres)

	rows := sqlmock.NewRows(appColumns).
		AddRow("vlc", "VLC", "https://example.com/vlc.exe", "exe", "/S", "VideoLAN.VLC", nil, "https://videolan.org").
		AddRow("obs", "OBS", nil, nil, nil, "OBSProject.OBSStudio", nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM apps WHERE id IN ($1, $2, $3)")).
		WithArgs("vlc", "obs", "nope").
		WillReturnRows(rows)

	items, err := lookup.GetItemsByIDs(context.Background(), []string{"vlc", "obs", "nope", "vlc"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, Item{
		ID:                 "vlc",
		Name:               "VLC",
		DirectSourceURL:    "https://example.com/vlc.exe",
		PackageFormat:      "exe",
		SilentArgs:         "/S",
		PackageManagerID:   "VideoLAN.VLC",
		OfficialWebsiteURL: "https://videolan.org",
	}, items[0])
	assert.Equal(t, Item{ID: "obs", Name: "OBS", PackageManagerID: "OBSProject.OBSStudio"}, items[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLookup_GetItemsByIDs_SQLitePlaceholders(t *testing.T) {
	db, mock := setupMockDB(t)
	lookup := NewSQLLookup(db, DriverSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("FROM apps WHERE id IN (?, ?)")).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows(appColumns))

	items, err := lookup.GetItemsByIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLookup_GetItemsByIDs_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	lookup := NewSQLLookup(db, DriverPostgres)

	items, err := lookup.GetItemsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLookup_GetItemsByIDs_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	lookup := NewSQLLookup(db, DriverPostgres)

	mock.ExpectQuery("FROM apps").WillReturnError(errors.New("connection reset"))

	_, err := lookup.GetItemsByIDs(context.Background(), []string{"vlc"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestSQLLookup_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB(ctx, DriverSQLite, "file::memory:?cache=shared")
	require.NoError(t, err)
	defer db.Close()

	lookup := NewSQLLookup(db, DriverSQLite)
	require.NoError(t, lookup.EnsureSchema(ctx))
	require.NoError(t, lookup.EnsureSchema(ctx), "schema creation should be idempotent")

	require.NoError(t, lookup.Upsert(ctx, []Item{
		{ID: "7zip", Name: "7-Zip", DirectSourceURL: "https://example.com/7z.msi", PackageFormat: FormatInstallerPackage, SilentArgs: "/qn"},
		{ID: "notion", Name: "Notion", OfficialWebsiteURL: "https://notion.so"},
	}))
	require.NoError(t, lookup.Upsert(ctx, []Item{
		{ID: "notion", Name: "Notion", OfficialDownloadURL: "https://notion.so/download"},
	}))

	items, err := lookup.GetItemsByIDs(ctx, []string{"notion", "7zip", "missing"})
	require.NoError(t, err)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	require.Len(t, items, 2)
	assert.Equal(t, "/qn", items[0].SilentArgs)
	assert.Equal(t, FormatInstallerPackage, items[0].PackageFormat)
	assert.Equal(t, "https://notion.so/download", items[1].OfficialDownloadURL)
	assert.Empty(t, items[1].OfficialWebsiteURL, "upsert replaces every column")
}

func TestOpenDB_UnsupportedDriver(t *testing.T) {
	_, err := OpenDB(context.Background(), "mysql", "")
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
