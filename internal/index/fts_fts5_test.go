//go:build sqlite_fts5

package index

import (
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM usages_fts`).Scan(&count); err != nil {
		t.Fatalf("usages_fts table missing: %v", err)
	}
}

func TestFTS5_SearchByAuthority(t *testing.T) {
	db := testDB(t)
	seed(t, db, "a.xml", "1")

	results, err := db.Search("Linnaeus", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "NameUsage::1" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_ReplaceSourceRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	seed(t, db, "a.xml", "1")
	_ = db.ReplaceSource(SourceRow{Path: "a.xml", Checksum: "2"}, nil, nil)

	results, _ := db.Search("sapiens", 10)
	if len(results) != 0 {
		t.Errorf("replaced usages still searchable: %+v", results)
	}
}
